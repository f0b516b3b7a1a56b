// Package httputil holds HTTP status and media type checks used while loading
// contracts.
package httputil

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
)

const (
	minStatusCode = 100
	maxStatusCode = 599
	wildcardChar  = 'X'
)

// ValidateStatusCode reports whether code can key a declared response:
// "default", an extension ("x-..."), a range such as "2XX", or 100-599.
func ValidateStatusCode(code string) bool {
	if code == "default" || strings.HasPrefix(code, "x-") {
		return true
	}
	if len(code) != 3 {
		return false
	}
	if code[1] == wildcardChar && code[2] == wildcardChar {
		return code[0] >= '1' && code[0] <= '5'
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(code)
	return err == nil && n >= minStatusCode && n <= maxStatusCode
}

// IsStandardStatusCode reports whether code is a status with a registered
// reason phrase.
func IsStandardStatusCode(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return http.StatusText(n) != ""
}

// IsRange reports whether code is a range key such as "4XX".
func IsRange(code string) bool {
	return len(code) == 3 && code[1] == wildcardChar && code[2] == wildcardChar
}

// IsValidMediaType validates a media type per RFC 2045/2046, accepting */*
// and type/* but not */subtype.
func IsValidMediaType(mediaType string) bool {
	if mediaType == "*/*" {
		return true
	}
	if main, ok := strings.CutSuffix(mediaType, "/*"); ok {
		return main != "" && main != "*" && !strings.Contains(main, "/")
	}
	if strings.HasPrefix(mediaType, "*/") || !strings.Contains(mediaType, "/") {
		return false
	}
	_, _, err := mime.ParseMediaType(mediaType)
	return err == nil
}
