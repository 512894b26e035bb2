// Package ast defines the runbook document model consumed by the validator.
//
// A Runbook is an ordered list of typed blocks. The model is read-only once
// built: the validator and the rule pipeline never mutate it.
package ast

import "fmt"

// ---------------------------------------------------------------------------
// Spans
// ---------------------------------------------------------------------------

// Span is a 1-based source range.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Contains reports whether the 1-based line/column position falls inside the span.
func (s Span) Contains(line, col int) bool {
	if line < s.StartLine || line > s.EndLine {
		return false
	}
	if line == s.StartLine && col < s.StartCol {
		return false
	}
	if line == s.EndLine && col > s.EndCol {
		return false
	}
	return true
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// BlockKind enumerates the top-level block types of a runbook.
type BlockKind string

const (
	KindAddon    BlockKind = "addon"
	KindSigner   BlockKind = "signer"
	KindAction   BlockKind = "action"
	KindOutput   BlockKind = "output"
	KindVariable BlockKind = "variable"
	KindFlow     BlockKind = "flow"
	KindModule   BlockKind = "module"
	KindRunbook  BlockKind = "runbook"
)

var knownKinds = map[BlockKind]bool{
	KindAddon:    true,
	KindSigner:   true,
	KindAction:   true,
	KindOutput:   true,
	KindVariable: true,
	KindFlow:     true,
	KindModule:   true,
	KindRunbook:  true,
}

// ParseKind maps a block keyword to its kind.
func ParseKind(keyword string) (BlockKind, bool) {
	k := BlockKind(keyword)
	return k, knownKinds[k]
}

// Attribute is one `key = expression` entry of a block body.
type Attribute struct {
	Key   string     `json:"key"`
	Value Expression `json:"-"`
	Span  *Span      `json:"span,omitempty"`
}

// Block is a named, typed top-level construct.
//
// Label holds the optional second label: the operation type of an action
// ("evm::send_eth") or the signer type of a signer.
type Block struct {
	Kind       BlockKind   `json:"kind"`
	Name       string      `json:"name"`
	Label      string      `json:"label,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	// Nested holds inner blocks (e.g. `action { ... }` sub-blocks). Their
	// expressions belong to the enclosing block for validation purposes.
	Nested []*Block `json:"nested,omitempty"`
	Span   *Span    `json:"span,omitempty"`
	// LabelSpan locates the second label, when present.
	LabelSpan *Span `json:"label_span,omitempty"`
}

// Attr returns the attribute with the given key.
func (b *Block) Attr(key string) (Attribute, bool) {
	for _, a := range b.Attributes {
		if a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

// Keys returns attribute keys in declaration order.
func (b *Block) Keys() []string {
	keys := make([]string, 0, len(b.Attributes))
	for _, a := range b.Attributes {
		keys = append(keys, a.Key)
	}
	return keys
}

// Line returns the block's start line, or 0 when the block has no span.
func (b *Block) Line() int {
	if b.Span == nil {
		return 0
	}
	return b.Span.StartLine
}

// SetAttr appends an attribute, replacing an existing one with the same key
// (last write wins).
func (b *Block) SetAttr(a Attribute) {
	for i := range b.Attributes {
		if b.Attributes[i].Key == a.Key {
			b.Attributes[i] = a
			return
		}
	}
	b.Attributes = append(b.Attributes, a)
}

// Runbook is a parsed document: blocks in source order.
type Runbook struct {
	File   string   `json:"file,omitempty"`
	Blocks []*Block `json:"blocks"`
}

// OfKind returns the blocks of one kind, in declaration order.
func (r *Runbook) OfKind(kind BlockKind) []*Block {
	var out []*Block
	for _, b := range r.Blocks {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

// Find returns the first block of the given kind and name.
func (r *Runbook) Find(kind BlockKind, name string) *Block {
	for _, b := range r.Blocks {
		if b.Kind == kind && b.Name == name {
			return b
		}
	}
	return nil
}
