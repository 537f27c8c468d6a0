package test

import "testing"

func AssertEqual[T comparable](t *testing.T, expected, actual T) bool {
	t.Helper()

	if expected != actual {
		t.Errorf(""+
			"Not equal: \n"+
			"Expected: %v\n"+
			"Actual: %v", expected, actual)
		return false
	}

	return true
}

func AssertTrue(t *testing.T, ok bool) bool {
	t.Helper()

	if !ok {
		t.Error("Expected true, got false")
	}
	return ok
}

func AssertNoErr(t *testing.T, err error) bool {
	t.Helper()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
		return false
	}
	return true
}

func AssertErr(t *testing.T, err error) bool {
	t.Helper()

	if err == nil {
		t.Error("Expected an error, got nil")
		return false
	}
	return true
}
