package eval

import (
	"fmt"
	"strconv"
)

// Solver and scorer arguments come from YAML, so numbers may be decoded as
// int or float64 and booleans occasionally as strings.

func stringArg(args map[string]interface{}, name, def string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
}

func intArg(args map[string]interface{}, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("argument %q must be an integer, got %v", name, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be an integer, got %q", name, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", name, v)
	}
}

func floatArg(args map[string]interface{}, name string, def float64) (float64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be a number, got %q", name, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number, got %T", name, v)
	}
}

func boolArg(args map[string]interface{}, name string, def bool) (bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("argument %q must be a boolean, got %q", name, b)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("argument %q must be a boolean, got %T", name, v)
	}
}
