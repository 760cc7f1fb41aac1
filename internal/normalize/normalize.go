package normalize

import "strings"

// Height canonicalizes bare centimeter values: numeric-only strings of two or
// three digits gain a " cm" suffix. Anything else (already annotated values,
// imperial notation, free text) passes through unchanged.
func Height(raw string) string {
	if len(raw) < 2 || len(raw) > 3 {
		return raw
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return raw
		}
	}
	return raw + " cm"
}

// Phone strips everything except digits and normalizes to E.164-ish "+digits"
// form. Inputs that do not yield 10 to 15 digits are invalid; the caller must
// not silently default them.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	return "+" + digits, true
}

// CityList splits a comma-separated city string into trimmed names, dropping
// empty segments.
func CityList(raw string) []string {
	parts := strings.Split(raw, ",")
	cities := make([]string, 0, len(parts))
	for _, part := range parts {
		city := strings.TrimSpace(part)
		if city == "" {
			continue
		}
		cities = append(cities, city)
	}
	return cities
}

// PruneEmpty returns a copy of the draft without semantically empty fields:
// nil values, blank or whitespace-only strings, and empty arrays. Applied once
// before the final submission payload is built.
func PruneEmpty(draft map[string]any) map[string]any {
	cleaned := make(map[string]any, len(draft))
	for key, value := range draft {
		if isEmpty(value) {
			continue
		}
		cleaned[key] = value
	}
	return cleaned
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
