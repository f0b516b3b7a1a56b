package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erraggy/oasguard/spec"
)

// segment is one "/"-separated piece of a template. A placeholder segment may
// carry literal text around it, as in "{name}.json".
type segment struct {
	literal string // whole-segment literal, when param is empty
	prefix  string
	param   string
	suffix  string
}

func (s segment) match(part string, params map[string]string) bool {
	if s.param == "" {
		return part == s.literal
	}
	if len(part) <= len(s.prefix)+len(s.suffix) {
		return false
	}
	if !strings.HasPrefix(part, s.prefix) || !strings.HasSuffix(part, s.suffix) {
		return false
	}
	params[s.param] = part[len(s.prefix) : len(part)-len(s.suffix)]
	return true
}

// pathMatcher matches request paths against one template and holds the
// operations declared under it.
type pathMatcher struct {
	template   string
	segments   []segment
	paramNames []string

	// specificity orders matchers: literal characters raise it, placeholders lower it.
	specificity int

	operations map[string]*spec.Operation
}

func newPathMatcher(template string) (*pathMatcher, error) {
	if template == "" {
		return nil, fmt.Errorf("path template cannot be empty")
	}
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("path template %q must start with /", template)
	}

	pm := &pathMatcher{template: template, operations: make(map[string]*spec.Operation)}
	for _, part := range splitPath(template) {
		seg, err := parseSegment(part, template)
		if err != nil {
			return nil, err
		}
		if seg.param != "" {
			for _, existing := range pm.paramNames {
				if existing == seg.param {
					return nil, fmt.Errorf("duplicate path parameter %q in template %q", seg.param, template)
				}
			}
			pm.paramNames = append(pm.paramNames, seg.param)
			pm.specificity--
			pm.specificity += len(seg.prefix) + len(seg.suffix)
		} else {
			pm.specificity += len(seg.literal)
		}
		pm.segments = append(pm.segments, seg)
	}
	return pm, nil
}

func parseSegment(part, template string) (segment, error) {
	open := strings.IndexByte(part, '{')
	if open == -1 {
		if strings.IndexByte(part, '}') != -1 {
			return segment{}, fmt.Errorf("unopened path parameter in template %q", template)
		}
		return segment{literal: part}, nil
	}

	end := strings.IndexByte(part[open:], '}')
	if end == -1 {
		return segment{}, fmt.Errorf("unclosed path parameter in template %q", template)
	}
	end += open

	name := part[open+1 : end]
	if name == "" {
		return segment{}, fmt.Errorf("empty path parameter in template %q", template)
	}
	suffix := part[end+1:]
	if strings.ContainsAny(name, "{/") || strings.ContainsAny(suffix, "{}") {
		return segment{}, fmt.Errorf("at most one path parameter per segment in template %q", template)
	}
	return segment{prefix: part[:open], param: name, suffix: suffix}, nil
}

// match reports whether path fits the template and extracts placeholder values.
func (pm *pathMatcher) match(parts []string) (map[string]string, bool) {
	if len(parts) != len(pm.segments) {
		return nil, false
	}
	params := make(map[string]string, len(pm.paramNames))
	for i, seg := range pm.segments {
		if !seg.match(parts[i], params) {
			return nil, false
		}
	}
	return params, true
}

// splitPath drops the leading slash; "/" yields a single empty segment.
func splitPath(path string) []string {
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

// sortMatchers orders by specificity (highest first), then by template length
// (longest first), then alphabetically for stability.
func sortMatchers(matchers []*pathMatcher) {
	sort.Slice(matchers, func(i, j int) bool {
		if matchers[i].specificity != matchers[j].specificity {
			return matchers[i].specificity > matchers[j].specificity
		}
		if len(matchers[i].template) != len(matchers[j].template) {
			return len(matchers[i].template) > len(matchers[j].template)
		}
		return matchers[i].template < matchers[j].template
	})
}
