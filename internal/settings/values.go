package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// HistoryLimit returns the per-table history cap, preferring the DB setting over fallback.
func HistoryLimit(fallback int) int {
	if raw, ok := DBConfigValue(HistoryLimitKey); ok {
		if limit, okParse := ParsePositiveInt(raw); okParse {
			return limit
		}
	}
	return fallback
}

// HistoryRetentionDays returns the history retention window, preferring the DB setting over fallback.
func HistoryRetentionDays(fallback int) int {
	if raw, ok := DBConfigValue(HistoryRetentionDaysKey); ok {
		if days, okParse := ParsePositiveInt(raw); okParse {
			return days
		}
	}
	return fallback
}

// DefaultAuthor returns the DB-configured author or fallback.
func DefaultAuthor(fallback string) string {
	if raw, ok := DBConfigValue(DefaultAuthorKey); ok {
		if author, okParse := ParseString(raw); okParse && author != "" {
			return author
		}
	}
	return fallback
}

// ParseString decodes a JSON string value.
func ParseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		return strings.TrimSpace(parsedString), true
	}
	return "", false
}

// ParsePositiveInt decodes a strictly positive integer from a JSON number or string.
func ParsePositiveInt(raw json.RawMessage) (int, bool) {
	value, ok := ParseNonNegativeInt(raw)
	if !ok || value <= 0 {
		return 0, false
	}
	return value, true
}

// ParseNonNegativeInt decodes a non-negative integer from a JSON number or string.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}

// ParseBool decodes a boolean from a JSON bool, a 0/1 number or a yes/no style string.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var parsedBool bool
	if errUnmarshalBool := json.Unmarshal(raw, &parsedBool); errUnmarshalBool == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		default:
			return false, false
		}
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		switch parsedFloat {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}
