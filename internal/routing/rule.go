// Package routing implements the rule-matching core of the router: field
// resolution over JSON payloads, operator evaluation, configuration
// normalization, and first-match rule selection.
//
// All functions in this package are total and side-effect free. They never
// perform I/O and never return errors to the caller; malformed input
// degrades to "no value", "no match", or an empty rule set.
package routing

import (
	"encoding/json"
	"strings"
)

// Op is a rule comparison operator. Operators are canonicalized to
// lower-case on input; an operator outside the known set never matches.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
	OpNin Op = "nin"
)

// ParseOp lower-cases an operator string. Unknown operators are kept as-is
// so they round-trip through persistence, but Evaluate treats them as
// never-matching.
func ParseOp(s string) Op {
	return Op(strings.ToLower(s))
}

// Known reports whether the operator is one the evaluator understands.
func (o Op) Known() bool {
	switch o {
	case OpEq, OpNeq, OpIn, OpNin:
		return true
	}
	return false
}

// Location hints which part of the request a rule's field refers to.
// It is informational only; the evaluator always matches against the body.
type Location string

const (
	LocationBody    Location = "body"
	LocationHeaders Location = "headers"
	LocationQuery   Location = "query"
	LocationPath    Location = "path"
)

// Rule is the atomic routing unit: when Field resolved against a payload
// satisfies Op/Value, the payload is forwarded to Destination.
//
// A rule without a destination is still matchable; it simply yields no
// forward target. That is deliberate: the first logical match wins even
// when it is unusable, so misconfiguration surfaces instead of being
// silently skipped.
type Rule struct {
	Field       string      `json:"field"`
	Op          Op          `json:"op"`
	Value       interface{} `json:"value"`
	Location    Location    `json:"location,omitempty"`
	Destination string      `json:"api_endpoint"`
}

// RuleSet is an ordered sequence of rules. Order is significant: it is the
// first-match tie-break and must be preserved through persistence, loading
// and normalization.
type RuleSet []Rule

// Destinations returns the non-empty forward targets of the set, in rule
// order. Used by the health endpoint.
func (rs RuleSet) Destinations() []string {
	targets := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.Destination != "" {
			targets = append(targets, r.Destination)
		}
	}
	return targets
}

// ruleDoc is the canonical on-disk shape of a rule. Location serializes as
// null when unset, matching the stored document format.
type ruleDoc struct {
	Field       string      `json:"field"`
	Op          string      `json:"op"`
	Value       interface{} `json:"value"`
	Location    *string     `json:"location"`
	Destination string      `json:"api_endpoint"`
}

// Document serializes the set into the canonical list-of-rules JSON form.
// Normalize(rs.Document()) reproduces rs.
func (rs RuleSet) Document() ([]byte, error) {
	docs := make([]ruleDoc, 0, len(rs))
	for _, r := range rs {
		d := ruleDoc{
			Field:       r.Field,
			Op:          string(r.Op),
			Value:       r.Value,
			Destination: r.Destination,
		}
		if r.Location != "" {
			loc := string(r.Location)
			d.Location = &loc
		}
		docs = append(docs, d)
	}
	return json.Marshal(docs)
}
