package render

import (
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
)

const (
	markerOpen  = "${"
	markerClose = "}"
)

// Validation is the outcome of checking a `${identifier}` template.
type Validation struct {
	Valid       bool     `json:"valid"`
	Identifiers []string `json:"identifiers"`
	Warnings    []string `json:"warnings"`
}

// ValidateTemplate checks text for well-formed markers.
// Unclosed, nested and empty markers are validation errors; identifiers
// missing from known only produce warnings.
func ValidateTemplate(text string, known []string) (Validation, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}
	result := Validation{Identifiers: []string{}, Warnings: []string{}}
	seen := map[string]struct{}{}

	rest := text
	offset := 0
	for {
		start := strings.Index(rest, markerOpen)
		if start < 0 {
			break
		}
		body := rest[start+len(markerOpen):]
		end := strings.Index(body, markerClose)
		if end < 0 {
			return Validation{}, apperrors.Validationf("unclosed marker at offset %d", offset+start)
		}
		if nested := strings.Index(body[:end], markerOpen); nested >= 0 {
			return Validation{}, apperrors.Validationf("nested marker at offset %d", offset+start+len(markerOpen)+nested)
		}
		id := strings.TrimSpace(body[:end])
		if id == "" {
			return Validation{}, apperrors.Validationf("empty marker at offset %d", offset+start)
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			result.Identifiers = append(result.Identifiers, id)
			if _, ok := knownSet[id]; !ok {
				result.Warnings = append(result.Warnings, "unknown identifier: "+id)
			}
		}
		consumed := start + len(markerOpen) + end + len(markerClose)
		offset += consumed
		rest = rest[consumed:]
	}
	result.Valid = true
	return result, nil
}

// Substitute replaces each `${identifier}` with its value in vars.
// Unresolved identifiers and malformed markers are left verbatim.
func Substitute(text string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, markerOpen)
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		body := rest[start+len(markerOpen):]
		end := strings.Index(body, markerClose)
		if end < 0 {
			b.WriteString(rest[start:])
			return b.String()
		}
		if strings.Contains(body[:end], markerOpen) {
			b.WriteString(markerOpen)
			rest = body
			continue
		}
		id := strings.TrimSpace(body[:end])
		if value, ok := vars[id]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(rest[start : start+len(markerOpen)+end+len(markerClose)])
		}
		rest = body[end+len(markerClose):]
	}
}
