package assembler

import "github.com/Thihup/teavm/classmodel"

// SliceContributor is a minimal Contributor that records every distinct
// reference it is asked to require, in first-seen order. It exists for
// tests and for cmd/wasmaot, which has no real external reachability engine
// to hand the assembler.
type SliceContributor struct {
	seen map[string]bool
	refs []classmodel.MethodRef
}

// NewSliceContributor returns an empty SliceContributor.
func NewSliceContributor() *SliceContributor {
	return &SliceContributor{seen: map[string]bool{}}
}

// Require implements Contributor.
func (c *SliceContributor) Require(ref classmodel.MethodRef) {
	key := ref.Class + "." + ref.Name
	for _, p := range ref.Params {
		key += "," + p
	}
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.refs = append(c.refs, ref)
}

// Required returns every distinct reference requested so far, in the order
// first requested.
func (c *SliceContributor) Required() []classmodel.MethodRef {
	return c.refs
}
