// Package issues collects the problems found by the JSON-schema checker and
// renders them as a single validation message.
package issues

import (
	"fmt"
	"strings"
)

// Severity indicates whether an issue fails validation.
type Severity int

const (
	// SeverityError fails validation.
	SeverityError Severity = iota

	// SeverityWarning is reported but never fails validation.
	// Format mismatches (email, uuid, date) are warnings.
	SeverityWarning
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Issue represents a single problem found while checking a value.
type Issue struct {
	// Path locates the value, e.g. "body.pets[2].name"
	Path string
	// Message is a human-readable description of the issue
	Message string
	// Severity indicates whether the issue fails validation
	Severity Severity
}

// String returns "path: message", or just the message when the path is empty.
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// List is an ordered collection of issues.
type List []Issue

// Add appends an error-severity issue.
func (l *List) Add(path, format string, args ...any) {
	*l = append(*l, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError})
}

// Warn appends a warning-severity issue.
func (l *List) Warn(path, format string, args ...any) {
	*l = append(*l, Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Errors returns only the error-severity issues.
func (l List) Errors() List {
	var out List
	for _, i := range l {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (l List) Warnings() List {
	var out List
	for _, i := range l {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// HasErrors reports whether any issue fails validation.
func (l List) HasErrors() bool {
	for _, i := range l {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Message joins the error-severity issues into one line separated by "; ".
func (l List) Message() string {
	sb := getStringBuilder()
	defer putStringBuilder(sb)

	n := 0
	for _, i := range l {
		if i.Severity != SeverityError {
			continue
		}
		if n > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(i.String())
		n++
	}
	return sb.String()
}

// JoinPath appends a property name to a dotted path.
func JoinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// IndexPath appends an array index to a path.
func IndexPath(path string, i int) string {
	sb := getStringBuilder()
	defer putStringBuilder(sb)

	sb.WriteString(path)
	sb.WriteByte('[')
	sb.WriteString(fmt.Sprint(i))
	sb.WriteByte(']')
	return sb.String()
}

// Lines renders every issue, warnings included, one per entry.
func (l List) Lines() []string {
	lines := make([]string, 0, len(l))
	for _, i := range l {
		lines = append(lines, strings.TrimSpace(i.String()))
	}
	return lines
}
