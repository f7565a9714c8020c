package routing

import (
	"reflect"
	"strings"

	"api-router/internal/common/logging"
)

// Evaluate applies one comparison operator between a rule's expected value
// and the resolved actual value. The found flag carries the resolver's
// absent/present distinction: a missing field equals nothing (so eq never
// matches it), is unequal to everything (neq matches), and is never a
// container (in fails, nin succeeds).
//
// Evaluate is total. A membership test against a non-container actual is a
// comparison error, not a match: it yields false for both in and nin and is
// logged as a warning.
func Evaluate(op Op, expected, actual interface{}, found bool) bool {
	switch op {
	case OpEq:
		return found && valueEqual(actual, expected)
	case OpNeq:
		return !found || !valueEqual(actual, expected)
	case OpIn:
		if !found {
			return false
		}
		member, ok := contains(actual, expected)
		if !ok {
			logging.Warn("membership test against non-container value",
				logging.Any("actual", actual), logging.Any("expected", expected))
			return false
		}
		return member
	case OpNin:
		if !found {
			return true
		}
		member, ok := contains(actual, expected)
		if !ok {
			logging.Warn("membership test against non-container value",
				logging.Any("actual", actual), logging.Any("expected", expected))
			return false
		}
		return !member
	default:
		logging.Warn("unknown operator in rule evaluation", logging.String("op", string(op)))
		return false
	}
}

// valueEqual is deep, type-sensitive equality with one concession: numeric
// kinds are unified before comparison so that a config literal 1 equals a
// payload 1.0. Strings never equal numbers.
func valueEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	if _, bok := toFloat(b); bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// contains tests membership of member in container. The second result is
// false when the container does not support membership at all (a scalar),
// or when a substring test is attempted with a non-string member.
func contains(container, member interface{}) (memberOf, ok bool) {
	switch c := container.(type) {
	case string:
		s, isStr := member.(string)
		if !isStr {
			return false, false
		}
		return strings.Contains(c, s), true
	case []interface{}:
		for _, item := range c {
			if valueEqual(item, member) {
				return true, true
			}
		}
		return false, true
	case map[string]interface{}:
		// Membership on an object tests its keys.
		s, isStr := member.(string)
		if !isStr {
			return false, true
		}
		_, present := c[s]
		return present, true
	}
	return false, false
}
