package redaction

import "encoding/json"

// DefaultFreeTextFields names the detailsJson keys internal/audit
// pseudonymizes before persisting an event: source paths and symbol/
// identifier names, the two free-text shapes that leak repo layout.
var DefaultFreeTextFields = []string{"path", "relPath", "symbolId", "symbolName", "file", "identifiers"}

// RedactJSONFields walks a flat JSON object (as persisted in
// AuditEvent.DetailsJSON) and pseudonymizes the named fields in place,
// leaving everything else untouched. Non-object input, or a field whose
// value isn't a string or array of strings, passes through unchanged.
func (r *Redactor) RedactJSONFields(rawJSON string, fields []string) string {
	if !r.enabled || rawJSON == "" {
		return rawJSON
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(rawJSON), &obj); err != nil {
		return rawJSON
	}

	redactSet := make(map[string]bool, len(fields))
	for _, f := range fields {
		redactSet[f] = true
	}

	for key, val := range obj {
		if !redactSet[key] {
			continue
		}
		switch v := val.(type) {
		case string:
			obj[key] = r.Pseudonymize(v)
		case []interface{}:
			out := make([]interface{}, len(v))
			for i, e := range v {
				if s, ok := e.(string); ok {
					out[i] = r.Pseudonymize(s)
				} else {
					out[i] = e
				}
			}
			obj[key] = out
		}
	}

	redacted, err := json.Marshal(obj)
	if err != nil {
		return rawJSON
	}
	return string(redacted)
}
