package routing

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Normalize converts any accepted configuration document shape into a
// RuleSet. It is a total function: an unrecognized shape produces an empty
// set, and a malformed legacy entry is skipped rather than aborting the
// whole conversion.
//
// Accepted shapes:
//
//   - a JSON array of rule objects (the canonical form); elements missing
//     required keys are passed through with zero values rather than
//     dropped, so a malformed rule exists in the set but never matches;
//   - a legacy mapping {field: {matchValue: destination | {op,
//     api_endpoint|endpoint|target, location}}}, expanded one rule per
//     (field, matchValue) pair in document key order, op defaulting to eq.
//
// The one content transformation performed is destination canonicalization:
// backslash path separators become forward slashes.
func Normalize(raw []byte) RuleSet {
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.IsArray():
		return normalizeList(doc)
	case doc.IsObject():
		return normalizeLegacyMap(doc)
	}
	return RuleSet{}
}

func normalizeList(doc gjson.Result) RuleSet {
	rules := RuleSet{}
	doc.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		rules = append(rules, Rule{
			Field:       item.Get("field").String(),
			Op:          ParseOp(item.Get("op").String()),
			Value:       item.Get("value").Value(),
			Location:    Location(item.Get("location").String()),
			Destination: canonicalDestination(item.Get("api_endpoint").String()),
		})
		return true
	})
	return rules
}

// normalizeLegacyMap expands the mapping form. gjson's ForEach visits keys
// in document order, which preserves the insertion order the first-match
// contract depends on.
func normalizeLegacyMap(doc gjson.Result) RuleSet {
	rules := RuleSet{}
	doc.ForEach(func(field, mapping gjson.Result) bool {
		if !mapping.IsObject() {
			return true
		}
		mapping.ForEach(func(matchValue, dest gjson.Result) bool {
			switch dest.Type {
			case gjson.String:
				rules = append(rules, Rule{
					Field:       field.Str,
					Op:          OpEq,
					Value:       matchValue.Str,
					Destination: canonicalDestination(dest.Str),
				})
			case gjson.JSON:
				if !dest.IsObject() {
					return true
				}
				op := ParseOp(dest.Get("op").String())
				if op == "" {
					op = OpEq
				}
				rules = append(rules, Rule{
					Field:       field.Str,
					Op:          op,
					Value:       matchValue.Str,
					Location:    Location(dest.Get("location").String()),
					Destination: canonicalDestination(legacyDestination(dest)),
				})
			}
			return true
		})
		return true
	})
	return rules
}

// legacyDestination extracts the forward target from a legacy meta object,
// trying the provider-specific key aliases in order.
func legacyDestination(meta gjson.Result) string {
	for _, key := range []string{"api_endpoint", "endpoint", "target"} {
		if v := meta.Get(key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func canonicalDestination(dest string) string {
	return strings.ReplaceAll(dest, `\`, "/")
}
