package rest

import (
	"testing"

	"github.com/hammer90/embeddable-rest-server/test"
)

func noRoute(req *Request, ctx struct{}) RequestHandler { return nil }

func TestRouterParams(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "/users/:id/posts/:post", noRoute))

	_, params, found := r.find(GET, "/users/42/posts/7")
	test.AssertTrue(t, found)
	test.AssertEqual(t, "42", params["id"])
	test.AssertEqual(t, "7", params["post"])
}

func TestRouterSlashUniformity(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "greeting/", noRoute))

	for _, path := range []string{"/greeting", "greeting", "/greeting/"} {
		_, _, found := r.find(GET, path)
		test.AssertTrue(t, found)
	}

	test.AssertNoErr(t, r.add(GET, "/", noRoute))
	_, _, found := r.find(GET, "/")
	test.AssertTrue(t, found)
}

func TestRouterNoMatch(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "/users/:id", noRoute))

	_, _, found := r.find(GET, "/users")
	test.AssertTrue(t, !found)
	_, _, found = r.find(GET, "/users/42/extra")
	test.AssertTrue(t, !found)
	_, _, found = r.find(POST, "/users/42")
	test.AssertTrue(t, !found)
}

func TestRouterDuplicate(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "/users/:id", noRoute))

	test.AssertEqual(t, ErrRouteExists, r.add(GET, "/users/:id", noRoute))
	// Same shape under a different parameter name is still the same
	// route.
	test.AssertEqual(t, ErrRouteExists, r.add(GET, "/users/:name", noRoute))
}

func TestRouterOverlap(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "/users/:id", noRoute))

	// "/users/self" is matched by both templates; registration refuses
	// the ambiguity instead of ranking at match time.
	test.AssertEqual(t, ErrRouteAmbiguous, r.add(GET, "/users/self", noRoute))

	// Distinct literals at the same position cannot collide.
	test.AssertNoErr(t, r.add(GET, "/teams/all", noRoute))
	// The same template under another verb is independent.
	test.AssertNoErr(t, r.add(POST, "/users/:id", noRoute))
}

func TestRouterBadTemplate(t *testing.T) {
	for _, template := range []string{"/users//posts", "/users/:"} {
		r := newRouter[struct{}]()
		test.AssertEqual(t, ErrBadTemplate, r.add(GET, template, noRoute))
	}
}

func TestRouterAllowed(t *testing.T) {
	r := newRouter[struct{}]()
	test.AssertNoErr(t, r.add(GET, "/thing/:id", noRoute))
	test.AssertNoErr(t, r.add(DELETE, "/thing/:id", noRoute))

	allow := r.allowed("/thing/9")
	test.AssertEqual(t, 2, len(allow))
	test.AssertEqual(t, "GET", allow[0])
	test.AssertEqual(t, "DELETE", allow[1])

	test.AssertEqual(t, 0, len(r.allowed("/other")))
}
