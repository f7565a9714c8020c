package routing

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Resolve extracts a value from a parsed JSON document by field specifier.
//
// A dotted specifier ("user.id") is an exact-path lookup: each segment must
// be a key of an object at that level, otherwise the result is absent. A
// bare specifier ("id") is a depth-first search for the first object
// anywhere in the tree that contains the key: object keys are visited in
// document order, array elements in index order, and an object is tested
// for the key itself before its children are descended into.
//
// The boolean result distinguishes absence from a present JSON null. An
// empty specifier resolves to absent.
func Resolve(doc gjson.Result, field string) (interface{}, bool) {
	if field == "" {
		return nil, false
	}

	if strings.Contains(field, ".") {
		return resolvePath(doc, field)
	}

	if hit, ok := searchKey(doc, field); ok {
		return hit.Value(), true
	}
	return nil, false
}

// resolvePath descends segment by segment. gjson's own path syntax is
// bypassed so that segments are matched as literal keys.
func resolvePath(doc gjson.Result, field string) (interface{}, bool) {
	cur := doc
	for _, seg := range strings.Split(field, ".") {
		if !cur.IsObject() {
			return nil, false
		}
		next, ok := childByKey(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur.Value(), true
}

func childByKey(obj gjson.Result, key string) (gjson.Result, bool) {
	var hit gjson.Result
	found := false
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			hit = v
			found = true
			return false
		}
		return true
	})
	return hit, found
}

// searchKey walks the tree depth-first looking for the first object that
// carries key. Presence decides the hit, not the value: a key holding JSON
// null is still a hit.
func searchKey(node gjson.Result, key string) (gjson.Result, bool) {
	switch {
	case node.IsObject():
		if hit, ok := childByKey(node, key); ok {
			return hit, true
		}
		return searchChildren(node, key)
	case node.IsArray():
		return searchChildren(node, key)
	}
	return gjson.Result{}, false
}

func searchChildren(node gjson.Result, key string) (gjson.Result, bool) {
	var hit gjson.Result
	found := false
	node.ForEach(func(_, v gjson.Result) bool {
		if r, ok := searchKey(v, key); ok {
			hit = r
			found = true
			return false
		}
		return true
	})
	return hit, found
}
