package checker

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// MatchesExpectation checks if actual value matches expected value.
// Expected strings support two special matchers:
//
//	~pattern~   regular expression match
//	>x <x >=x <=x   numeric comparison
//
// Returns (true, "") on match, (false, "reason") on mismatch.
func MatchesExpectation(actual, expected interface{}) (bool, string) {
	if expected == nil {
		if actual == nil {
			return true, ""
		}
		return false, fmt.Sprintf("expected nil, got %v", actual)
	}
	if actual == nil {
		return false, fmt.Sprintf("expected %v, got nil", expected)
	}

	if expectedStr, ok := expected.(string); ok {
		if strings.HasPrefix(expectedStr, "~") && strings.HasSuffix(expectedStr, "~") && len(expectedStr) > 1 {
			return matchRegex(actual, strings.Trim(expectedStr, "~"))
		}
		if strings.HasPrefix(expectedStr, ">") || strings.HasPrefix(expectedStr, "<") {
			return matchComparison(actual, expectedStr)
		}
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		if !ok {
			return false, fmt.Sprintf("expected string, got %T", actual)
		}
		if actualStr != exp {
			return false, fmt.Sprintf("expected %q, got %q", exp, actualStr)
		}
		return true, ""

	case bool:
		actualBool, ok := actual.(bool)
		if !ok {
			return false, fmt.Sprintf("expected bool, got %T", actual)
		}
		if actualBool != exp {
			return false, fmt.Sprintf("expected %v, got %v", exp, actualBool)
		}
		return true, ""

	case map[string]interface{}:
		return matchMap(actual, exp)
	}

	// Numbers arrive as assorted int/float types depending on the decoder;
	// compare through float64.
	if expectedFloat, err := toFloat64(expected); err == nil {
		actualFloat, err := toFloat64(actual)
		if err != nil {
			return false, fmt.Sprintf("expected numeric value, got %T", actual)
		}
		if actualFloat != expectedFloat {
			return false, fmt.Sprintf("expected %v, got %v", expected, actual)
		}
		return true, ""
	}

	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() == reflect.Slice || expectedVal.Kind() == reflect.Array {
		return matchArray(actual, expected)
	}

	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

// matchRegex checks if actual matches a regex pattern
func matchRegex(actual interface{}, pattern string) (bool, string) {
	actualStr := fmt.Sprintf("%v", actual)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern %q: %v", pattern, err)
	}

	if re.MatchString(actualStr) {
		return true, ""
	}

	return false, fmt.Sprintf("value %q does not match pattern ~%s~", actualStr, pattern)
}

// matchComparison checks if actual satisfies a comparison (>, <, >=, <=)
func matchComparison(actual interface{}, comparison string) (bool, string) {
	actualFloat, err := toFloat64(actual)
	if err != nil {
		return false, fmt.Sprintf("cannot compare non-numeric value: %v", actual)
	}

	var op, valueStr string
	switch {
	case strings.HasPrefix(comparison, ">="):
		op, valueStr = ">=", strings.TrimPrefix(comparison, ">=")
	case strings.HasPrefix(comparison, "<="):
		op, valueStr = "<=", strings.TrimPrefix(comparison, "<=")
	case strings.HasPrefix(comparison, ">"):
		op, valueStr = ">", strings.TrimPrefix(comparison, ">")
	case strings.HasPrefix(comparison, "<"):
		op, valueStr = "<", strings.TrimPrefix(comparison, "<")
	default:
		return false, fmt.Sprintf("invalid comparison: %s", comparison)
	}

	expectedFloat, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return false, fmt.Sprintf("invalid comparison value: %s", valueStr)
	}

	var result bool
	switch op {
	case ">":
		result = actualFloat > expectedFloat
	case "<":
		result = actualFloat < expectedFloat
	case ">=":
		result = actualFloat >= expectedFloat
	case "<=":
		result = actualFloat <= expectedFloat
	}

	if result {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v %s %v", actualFloat, op, expectedFloat)
}

// matchMap performs recursive matching on expected keys. Extra keys in the
// actual map are ignored.
func matchMap(actual interface{}, expected map[string]interface{}) (bool, string) {
	actualMap, ok := actual.(map[string]interface{})
	if !ok {
		return false, fmt.Sprintf("expected map, got %T", actual)
	}

	for key, expectedValue := range expected {
		actualValue, exists := actualMap[key]
		if !exists {
			return false, fmt.Sprintf("missing key %q", key)
		}

		matches, reason := MatchesExpectation(actualValue, expectedValue)
		if !matches {
			return false, fmt.Sprintf("key %q: %s", key, reason)
		}
	}

	return true, ""
}

// matchArray performs element-wise matching on arrays
func matchArray(actual, expected interface{}) (bool, string) {
	actualVal := reflect.ValueOf(actual)
	expectedVal := reflect.ValueOf(expected)

	if actualVal.Kind() != reflect.Slice && actualVal.Kind() != reflect.Array {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}

	if actualVal.Len() != expectedVal.Len() {
		return false, fmt.Sprintf("expected array length %d, got %d", expectedVal.Len(), actualVal.Len())
	}

	for i := 0; i < expectedVal.Len(); i++ {
		matches, reason := MatchesExpectation(actualVal.Index(i).Interface(), expectedVal.Index(i).Interface())
		if !matches {
			return false, fmt.Sprintf("element %d: %s", i, reason)
		}
	}

	return true, ""
}

// toFloat64 converts various numeric types to float64
func toFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("not a numeric type: %T", val)
	}
}
