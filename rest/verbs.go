package rest

// Verb is one of the request methods the parser understands. Any other
// method token on the wire is answered with 501.
type Verb uint8

const (
	GET Verb = iota
	POST
	PUT
	DELETE
	PATCH

	numVerbs = 5
)

var verbNames = [numVerbs]string{"GET", "POST", "PUT", "DELETE", "PATCH"}

func (v Verb) String() string {
	if int(v) < len(verbNames) {
		return verbNames[v]
	}
	return "UNKNOWN"
}

func mapMethod(token string) (Verb, error) {
	switch token {
	case "GET":
		return GET, nil
	case "POST":
		return POST, nil
	case "PUT":
		return PUT, nil
	case "DELETE":
		return DELETE, nil
	case "PATCH":
		return PATCH, nil
	default:
		return 0, errMethodNotImplemented(token)
	}
}

// hasRequestBody reports whether the engine feeds a body to handlers
// for this verb. Other verbs may still carry a declared body on the
// wire; it is drained, not delivered.
func (v Verb) hasRequestBody() bool {
	return v == POST || v == PUT || v == PATCH
}
