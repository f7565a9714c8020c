package routing

import "github.com/tidwall/gjson"

// Match scans the rule set in order and returns the first rule satisfied by
// the payload. No match is a normal outcome, reported by the second result.
//
// The winning rule is returned even when its destination is empty; deciding
// whether an unusable match is an error belongs to the caller.
func Match(rules RuleSet, payload []byte) (*Rule, bool) {
	return MatchDocument(rules, gjson.ParseBytes(payload))
}

// MatchDocument is Match over an already-parsed payload.
func MatchDocument(rules RuleSet, doc gjson.Result) (*Rule, bool) {
	for i := range rules {
		rule := &rules[i]
		actual, found := Resolve(doc, rule.Field)
		if Evaluate(rule.Op, rule.Value, actual, found) {
			return rule, true
		}
	}
	return nil, false
}
