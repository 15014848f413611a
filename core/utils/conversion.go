package utils

import (
	"strings"
)

// ToBool converts loosely typed agent values to bool.
// It handles bool, numbers (1=true) and strings ("1", "true", "yes", "on").
// Decoded JSON numbers arrive as float64.
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case float32:
		return v == 1
	case int:
		return v == 1
	case int64:
		return v == 1
	case uint:
		return v == 1
	case string:
		return truthy(v)
	case []byte:
		return truthy(string(v))
	default:
		return false
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
