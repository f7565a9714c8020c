package routing

import "sync/atomic"

// Table is the atomically-swappable holder of the active configuration.
// Readers take a consistent snapshot with no locking; Publish builds a
// brand-new snapshot from the normalizer and swaps it in a single pointer
// store, so in-flight matches never observe a partially-updated set.
type Table struct {
	ptr atomic.Pointer[snapshot]
}

type snapshot struct {
	rules    RuleSet
	document []byte
}

// NewTable returns a table holding an empty rule set.
func NewTable() *Table {
	t := &Table{}
	t.ptr.Store(&snapshot{rules: RuleSet{}})
	return t
}

// Publish normalizes the raw configuration document and swaps it in as the
// active snapshot, returning the resulting rule set.
func (t *Table) Publish(document []byte) RuleSet {
	rules := Normalize(document)
	doc := make([]byte, len(document))
	copy(doc, document)
	t.ptr.Store(&snapshot{rules: rules, document: doc})
	return rules
}

// Rules returns the active rule set. The returned slice must be treated as
// immutable.
func (t *Table) Rules() RuleSet {
	return t.ptr.Load().rules
}

// Document returns the raw configuration document the active rules were
// normalized from.
func (t *Table) Document() []byte {
	return t.ptr.Load().document
}
