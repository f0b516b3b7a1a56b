package spec

import (
	"sort"

	"github.com/erraggy/oasguard/internal/httputil"
	"github.com/erraggy/oasguard/logging"
)

// audit drops response and media type keys no request can ever match, and
// notes keys that only partly take part in validation. It runs once per load
// before the document is shared.
func audit(doc *Document, logger logging.Logger) {
	for _, op := range doc.Operations {
		for _, status := range sortedKeys(op.Responses) {
			switch {
			case !httputil.ValidateStatusCode(status):
				logger.Warn("dropping response with invalid status", "operation", op.String(), "status", status)
				delete(op.Responses, status)
				continue
			case httputil.IsRange(status):
				logger.Debug("status ranges are not matched; declare exact codes", "operation", op.String(), "status", status)
			case status != "default" && !httputil.IsStandardStatusCode(status):
				logger.Debug("non-standard status code", "operation", op.String(), "status", status)
			}
			if resp := op.Responses[status]; resp != nil {
				auditContent(op, resp.Content, logger)
			}
		}
		if op.RequestBody != nil {
			auditContent(op, op.RequestBody.Content, logger)
		}
	}
}

func auditContent(op *Operation, content Content, logger logging.Logger) {
	for _, mt := range sortedKeys(content) {
		if !httputil.IsValidMediaType(mt) {
			logger.Warn("dropping invalid media type", "operation", op.String(), "media_type", mt)
			delete(content, mt)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
