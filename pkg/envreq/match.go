package envreq

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// containsChecks maps contains-check names to their predicates. A check
// operates on the requirement value and the environment string.
var containsChecks = map[string]func(value, env string) (bool, error){
	"contains_exact": func(value, env string) (bool, error) {
		return strings.Contains(env, value), nil
	},
	"not_contains_exact": func(value, env string) (bool, error) {
		return !strings.Contains(env, value), nil
	},
	"contains_regex": func(value, env string) (bool, error) {
		matched, err := regexp.MatchString(value, env)
		if err != nil {
			return false, fmt.Errorf("invalid contains_regex pattern %q: %w", value, err)
		}
		return matched, nil
	},
	"not_contains_regex": func(value, env string) (bool, error) {
		matched, err := regexp.MatchString(value, env)
		if err != nil {
			return false, fmt.Errorf("invalid not_contains_regex pattern %q: %w", value, err)
		}
		return !matched, nil
	},
}

// Matches reports whether the environment configuration satisfies the
// requirement document. A nil requirement is a wildcard. A list in the
// requirement names the set of acceptable values at that position. A list
// of single-key maps matched against an environment string is interpreted
// as a sequence of contains checks (contains_exact, not_contains_exact,
// contains_regex, not_contains_regex).
//
// The error return is reserved for malformed requirements (unknown
// contains-check names, invalid regular expressions); an unmet requirement
// is reported as (false, nil).
func Matches(req, env interface{}) (bool, error) {
	if req == nil {
		return true, nil
	}

	reqMap, reqIsMap := req.(map[string]interface{})
	envMap, envIsMap := env.(map[string]interface{})
	reqList, reqIsList := req.([]interface{})
	envList, envIsList := env.([]interface{})

	// Map requirement against map environment: every key must resolve
	// and match. Missing keys resolve to nil, which only a nil (wildcard)
	// requirement value accepts.
	if reqIsMap && envIsMap {
		all := true
		for key, want := range reqMap {
			ok, err := Matches(want, envMap[key])
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}

	// List requirement against scalar environment: allowed-value set.
	if reqIsList && isScalar(env) && scalarInList(env, reqList) {
		return true, nil
	}

	// Scalar requirement against list environment: membership.
	if envIsList && isScalar(req) && scalarInList(req, envList) {
		return true, nil
	}

	// Map requirement against list environment: any element satisfies.
	if reqIsMap && envIsList {
		for _, item := range envList {
			ok, err := Matches(req, item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}

	// List requirement against list environment: every item satisfies.
	if reqIsList && envIsList {
		all := true
		for _, item := range reqList {
			ok, err := Matches(item, env)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}

	// List requirement against map environment: any item satisfies.
	if reqIsList && envIsMap {
		for _, item := range reqList {
			ok, err := Matches(item, env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}

	if reflect.DeepEqual(req, env) {
		return true, nil
	}

	// List of single-key maps against a string environment: contains checks.
	if envStr, ok := env.(string); ok && reqIsList && isContainsCheckList(reqList) {
		return performContainsChecks(reqList, envStr)
	}

	return false, nil
}

// isScalar reports whether v is a scalar value for matching purposes.
func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int64, float64:
		return true
	}
	return false
}

// scalarInList reports whether scalar v is a member of list.
func scalarInList(v interface{}, list []interface{}) bool {
	for _, item := range list {
		if scalarEqual(v, item) {
			return true
		}
	}
	return false
}

// scalarEqual compares scalars, tolerating the int/float64 split that
// arises between literal Go values and JSON-decoded documents.
func scalarEqual(a, b interface{}) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	return aOK && bOK && af == bf
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// isContainsCheckList reports whether every element is a single-key map,
// the shape required for a contains-check sequence.
func isContainsCheckList(list []interface{}) bool {
	if len(list) == 0 {
		return false
	}
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok || len(m) != 1 {
			return false
		}
	}
	return true
}

// performContainsChecks evaluates a contains-check sequence against an
// environment string. All checks must pass. Every check name is
// validated before any predicate runs, so a malformed requirement is
// always reported as an error and never as a plain mismatch.
func performContainsChecks(checks []interface{}, env string) (bool, error) {
	for _, item := range checks {
		for name, raw := range item.(map[string]interface{}) {
			if _, ok := containsChecks[name]; !ok {
				return false, fmt.Errorf("invalid contains check: %s", name)
			}
			if _, ok := raw.(string); !ok {
				return false, fmt.Errorf("contains check %s requires a string value, got %T", name, raw)
			}
		}
	}

	for _, item := range checks {
		for name, raw := range item.(map[string]interface{}) {
			passed, err := containsChecks[name](raw.(string), env)
			if err != nil {
				return false, err
			}
			if !passed {
				return false, nil
			}
		}
	}
	return true, nil
}
