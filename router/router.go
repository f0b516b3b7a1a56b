// Package router resolves an HTTP method and path to a declared operation.
//
// Templates are compiled once by New. Matching is segment by segment,
// case-sensitive, and exact in arity. When several templates match a path the
// one with more literal text wins, so "/pets/mine" beats "/pets/{id}".
package router

import (
	"fmt"
	"strings"

	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/spec"
)

// Router maps (method, path) pairs to operations. It is immutable and safe
// for concurrent use.
type Router struct {
	prefix   string
	matchers []*pathMatcher
}

// Match is a resolved operation plus the placeholder values taken from the path.
type Match struct {
	Operation  *spec.Operation
	Template   string
	PathParams map[string]string
}

// New compiles every operation template in doc. prefix, when set, must start
// with "/" and is stripped from request paths before matching.
func New(doc *spec.Document, prefix string) (*Router, error) {
	if doc == nil {
		return nil, &oaserrors.ConfigError{Option: "document", Message: "document is required"}
	}
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return nil, &oaserrors.ConfigError{Option: "prefix", Value: prefix, Message: "must start with /"}
	}

	r := &Router{prefix: strings.TrimSuffix(prefix, "/")}
	byTemplate := make(map[string]*pathMatcher)

	for _, op := range doc.Operations {
		pm, ok := byTemplate[op.Path]
		if !ok {
			var err error
			pm, err = newPathMatcher(op.Path)
			if err != nil {
				return nil, &oaserrors.ConfigError{Option: "path", Value: op.Path, Message: "invalid template", Cause: err}
			}
			byTemplate[op.Path] = pm
			r.matchers = append(r.matchers, pm)
		}
		pm.operations[strings.ToUpper(op.Method)] = op
	}

	sortMatchers(r.matchers)
	return r, nil
}

// Prefix returns the configured prefix without a trailing slash.
func (r *Router) Prefix() string {
	return r.prefix
}

// Templates returns every template in match order.
func (r *Router) Templates() []string {
	out := make([]string, len(r.matchers))
	for i, m := range r.matchers {
		out[i] = m.template
	}
	return out
}

// Resolve finds the operation for method and path. It returns a
// *oaserrors.NotFoundError when the path lies outside the prefix, matches no
// template, or matches templates that do not declare the method.
func (r *Router) Resolve(method, path string) (*Match, error) {
	method = strings.ToUpper(method)

	rel, ok := r.strip(path)
	if !ok {
		return nil, &oaserrors.NotFoundError{Method: method, Path: path}
	}

	parts := splitPath(rel)
	matchedTemplate := ""
	for _, pm := range r.matchers {
		params, ok := pm.match(parts)
		if !ok {
			continue
		}
		if op, ok := pm.operations[method]; ok {
			return &Match{Operation: op, Template: pm.template, PathParams: params}, nil
		}
		if matchedTemplate == "" {
			matchedTemplate = pm.template
		}
	}

	if matchedTemplate != "" {
		return nil, &oaserrors.NotFoundError{
			Method:         method,
			Path:           path,
			MatchedPath:    matchedTemplate,
			MethodMismatch: true,
		}
	}
	return nil, &oaserrors.NotFoundError{Method: method, Path: path}
}

// strip removes the prefix. "/v1" accepts "/v1" and "/v1/..." but not "/v10".
func (r *Router) strip(path string) (string, bool) {
	if r.prefix == "" {
		if path == "" {
			return "/", true
		}
		return path, strings.HasPrefix(path, "/")
	}
	if !strings.HasPrefix(path, r.prefix) {
		return "", false
	}
	rest := path[len(r.prefix):]
	switch {
	case rest == "":
		return "/", true
	case rest[0] == '/':
		return rest, true
	default:
		return "", false
	}
}

// String summarizes the router for diagnostics.
func (r *Router) String() string {
	return fmt.Sprintf("router(prefix=%q, templates=%d)", r.prefix, len(r.matchers))
}
