package schemavalidator

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erraggy/oasguard/internal/issues"
	"github.com/erraggy/oasguard/internal/jsonutil"
	"github.com/erraggy/oasguard/spec"
)

// checker validates decoded values against schema nodes, collecting every
// violation rather than stopping at the first. It implements the subset of
// JSON Schema that hyper-schema and OpenAPI 2 documents use.
type checker struct {
	// patternCache caches compiled regex patterns (sync.Map[string, *regexp.Regexp])
	patternCache sync.Map

	// patternCount tracks the approximate number of cached patterns for size capping
	patternCount atomic.Int32
}

func newChecker() *checker {
	return &checker{}
}

// Check validates data against schema and appends what it finds to list.
func (c *checker) Check(data any, schema *spec.Schema, path string, list *issues.List) {
	if schema == nil {
		return
	}

	if data == nil {
		if !schema.Nullable {
			list.Add(path, "value cannot be null")
		}
		return
	}

	// constraints only make sense once the type is right
	if !c.checkType(data, schema, path, list) {
		return
	}

	switch d := data.(type) {
	case string:
		c.checkString(d, schema, path, list)
	case []any:
		c.checkArray(d, schema, path, list)
	case map[string]any:
		c.checkObject(d, schema, path, list)
	case bool:
	default:
		if jsonutil.IsNumber(d) {
			c.checkNumber(toFloat64(d), schema, path, list)
		}
	}

	if len(schema.Enum) > 0 {
		c.checkEnum(data, schema, path, list)
	}

	c.checkComposition(data, schema, path, list)
}

// valid reports whether data passes schema with no errors.
func (c *checker) valid(data any, schema *spec.Schema) bool {
	var list issues.List
	c.Check(data, schema, "", &list)
	return !list.HasErrors()
}

func (c *checker) checkType(data any, schema *spec.Schema, path string, list *issues.List) bool {
	if schema.Type == "" {
		return true
	}

	dataType := jsonutil.TypeName(data)
	switch {
	case dataType == schema.Type:
		return true
	case schema.Type == "number" && dataType == "integer":
		return true
	case schema.Type == "integer" && dataType == "number":
		// a value decoded as floating point is never an integer, even 1.0
		list.Add(path, "value must be an integer, got %v", jsonutil.Display(data))
		return false
	}

	list.Add(path, "expected type %s but got %s", schema.Type, dataType)
	return false
}

func (c *checker) checkString(s string, schema *spec.Schema, path string, list *issues.List) {
	n := len([]rune(s))
	if schema.MinLength != nil && n < *schema.MinLength {
		list.Add(path, "string length %d is less than minimum %d", n, *schema.MinLength)
	}
	if schema.MaxLength != nil && n > *schema.MaxLength {
		list.Add(path, "string length %d exceeds maximum %d", n, *schema.MaxLength)
	}

	if schema.Pattern != "" {
		matched, err := c.matchPattern(schema.Pattern, s)
		switch {
		case err != nil:
			list.Add(path, "invalid pattern %q: %v", schema.Pattern, err)
		case !matched:
			list.Add(path, "string does not match pattern %q", schema.Pattern)
		}
	}

	if schema.Format != "" {
		checkFormat(s, schema.Format, path, list)
	}
}

func (c *checker) checkNumber(n float64, schema *spec.Schema, path string, list *issues.List) {
	if schema.Minimum != nil {
		if schema.ExclusiveMinimum && n <= *schema.Minimum {
			list.Add(path, "value %v must be greater than %v", n, *schema.Minimum)
		} else if !schema.ExclusiveMinimum && n < *schema.Minimum {
			list.Add(path, "value %v is less than minimum %v", n, *schema.Minimum)
		}
	}

	if schema.Maximum != nil {
		if schema.ExclusiveMaximum && n >= *schema.Maximum {
			list.Add(path, "value %v must be less than %v", n, *schema.Maximum)
		} else if !schema.ExclusiveMaximum && n > *schema.Maximum {
			list.Add(path, "value %v exceeds maximum %v", n, *schema.Maximum)
		}
	}

	if schema.MultipleOf != nil && *schema.MultipleOf != 0 {
		q := n / *schema.MultipleOf
		if q != float64(int64(q)) {
			list.Add(path, "value %v is not a multiple of %v", n, *schema.MultipleOf)
		}
	}
}

func (c *checker) checkArray(arr []any, schema *spec.Schema, path string, list *issues.List) {
	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		list.Add(path, "array has %d items, minimum is %d", len(arr), *schema.MinItems)
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		list.Add(path, "array has %d items, maximum is %d", len(arr), *schema.MaxItems)
	}
	if schema.UniqueItems && hasDuplicates(arr) {
		list.Add(path, "array items must be unique")
	}

	if schema.Items != nil {
		for i, item := range arr {
			c.Check(item, schema.Items, issues.IndexPath(path, i), list)
		}
	}
}

func (c *checker) checkObject(obj map[string]any, schema *spec.Schema, path string, list *issues.List) {
	for _, req := range schema.Required {
		if _, exists := obj[req]; !exists {
			list.Add(issues.JoinPath(path, req), "required property %q is missing", req)
		}
	}

	for _, name := range sortedKeys(obj) {
		if prop := schema.Property(name); prop != nil {
			c.Check(obj[name], prop, issues.JoinPath(path, name), list)
		}
	}
}

func (c *checker) checkEnum(data any, schema *spec.Schema, path string, list *issues.List) {
	for _, allowed := range schema.Enum {
		if jsonutil.Equal(data, allowed) {
			return
		}
	}
	list.Add(path, "value %s is not one of the allowed values", jsonutil.Display(data))
}

func (c *checker) checkComposition(data any, schema *spec.Schema, path string, list *issues.List) {
	for i, sub := range schema.AllOf {
		var subList issues.List
		c.Check(data, sub, path, &subList)
		if subList.HasErrors() {
			list.Add(path, "allOf[%d] validation failed", i)
			*list = append(*list, subList.Errors()...)
		}
	}

	if len(schema.AnyOf) > 0 {
		matched := false
		for _, sub := range schema.AnyOf {
			if c.valid(data, sub) {
				matched = true
				break
			}
		}
		if !matched {
			list.Add(path, "value does not match any of %s", describeList(schema.AnyOf))
		}
	}

	if len(schema.OneOf) > 0 {
		count := 0
		for _, sub := range schema.OneOf {
			if c.valid(data, sub) {
				count++
			}
		}
		switch {
		case count == 0:
			list.Add(path, "value does not match any of %s", describeList(schema.OneOf))
		case count > 1:
			list.Add(path, "value matches %d oneOf schemas, expected exactly 1", count)
		}
	}
}

// Format mismatches are warnings: they are reported but never fail a request.
func checkFormat(s, format, path string, list *issues.List) {
	switch format {
	case "email":
		if !emailRegex.MatchString(s) {
			list.Warn(path, "%q is not a valid email address", s)
		}
	case "uri", "uri-reference":
		if !strings.Contains(s, "://") {
			list.Warn(path, "%q is not a valid URI", s)
		}
	case "date":
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			list.Warn(path, "%q is not a valid date (expected YYYY-MM-DD)", s)
		}
	case "date-time":
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			list.Warn(path, "%q is not a valid date-time (expected RFC 3339)", s)
		}
	case "uuid":
		if !uuidRegex.MatchString(s) {
			list.Warn(path, "%q is not a valid UUID", s)
		}
	}
}

// maxPatternCacheSize bounds the compiled pattern cache. When exceeded the
// cache is cleared.
const maxPatternCacheSize = 1000

func (c *checker) matchPattern(pattern, s string) (bool, error) {
	if cached, ok := c.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(s), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}

	// Count check and clear are not atomic together. Concurrent clears only
	// cost recompilation.
	if c.patternCount.Add(1) > maxPatternCacheSize {
		c.patternCache.Range(func(key, _ any) bool {
			c.patternCache.Delete(key)
			return true
		})
		c.patternCount.Store(1)
	}
	c.patternCache.Store(pattern, re)
	return re.MatchString(s), nil
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func hasDuplicates(arr []any) bool {
	for i := range arr {
		for j := i + 1; j < len(arr); j++ {
			if jsonutil.Equal(arr[i], arr[j]) {
				return true
			}
		}
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
