package rest

import "strings"

// A template segment is either a literal or a named parameter
// (declared with a ':' sigil) binding any single non-empty segment.
type segment struct {
	literal string
	param   string
}

type compiledRoute[C any] struct {
	segments []segment
	route    Route[C]
}

// router holds the compiled routes per verb. It is populated during
// configuration only; after the server starts it is read-only and
// needs no synchronization.
type router[C any] struct {
	routes [numVerbs][]compiledRoute[C]
}

func newRouter[C any]() *router[C] {
	return &router[C]{}
}

// uniformPath strips leading and trailing slashes so "", "/", and
// "/x/" register and match consistently.
func uniformPath(path string) string {
	return strings.Trim(path, "/")
}

func compileTemplate(template string) ([]segment, error) {
	uniform := uniformPath(template)
	if uniform == "" {
		return []segment{}, nil
	}
	parts := strings.Split(uniform, "/")
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, ErrBadTemplate
		}
		if strings.HasPrefix(part, ":") {
			name := part[1:]
			if name == "" {
				return nil, ErrBadTemplate
			}
			segments = append(segments, segment{param: name})
			continue
		}
		segments = append(segments, segment{literal: part})
	}
	return segments, nil
}

// add registers a template. Two templates conflict when some concrete
// path could match both; that is a configuration error here, not a
// tie to break at match time.
func (r *router[C]) add(verb Verb, template string, route Route[C]) error {
	segments, err := compileTemplate(template)
	if err != nil {
		return err
	}
	for _, existing := range r.routes[verb] {
		if !overlaps(existing.segments, segments) {
			continue
		}
		if sameShape(existing.segments, segments) {
			return ErrRouteExists
		}
		return ErrRouteAmbiguous
	}
	r.routes[verb] = append(r.routes[verb], compiledRoute[C]{segments: segments, route: route})
	return nil
}

func overlaps(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].param != "" || b[i].param != "" {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}

func sameShape(a, b []segment) bool {
	for i := range a {
		if (a[i].param != "") != (b[i].param != "") {
			return false
		}
		if a[i].param == "" && a[i].literal != b[i].literal {
			return false
		}
	}
	return len(a) == len(b)
}

// find resolves a concrete path for one verb, extracting parameters.
// Matching is exact on segment count; there is no wildcard or greedy
// trailing match.
func (r *router[C]) find(verb Verb, path string) (Route[C], map[string]string, bool) {
	segments := splitPath(path)
	for _, candidate := range r.routes[verb] {
		if params, ok := match(candidate.segments, segments); ok {
			return candidate.route, params, true
		}
	}
	return nil, nil, false
}

// allowed lists the verbs with a route matching path, for the Allow
// header of a 405.
func (r *router[C]) allowed(path string) []string {
	segments := splitPath(path)
	var verbs []string
	for v := range r.routes {
		for _, candidate := range r.routes[v] {
			if _, ok := match(candidate.segments, segments); ok {
				verbs = append(verbs, Verb(v).String())
				break
			}
		}
	}
	return verbs
}

func splitPath(path string) []string {
	uniform := uniformPath(path)
	if uniform == "" {
		return []string{}
	}
	return strings.Split(uniform, "/")
}

func match(template []segment, path []string) (map[string]string, bool) {
	if len(template) != len(path) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range template {
		if path[i] == "" {
			return nil, false
		}
		if seg.param != "" {
			params[seg.param] = path[i]
			continue
		}
		if seg.literal != path[i] {
			return nil, false
		}
	}
	return params, true
}
