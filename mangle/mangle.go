// Package mangle implements the Name Mangler: pure, deterministic,
// injective functions from method/class references to WebAssembly symbol
// names.
package mangle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thihup/teavm/classmodel"
)

// field writes s into b as a length-prefixed segment: "_<len(s)>_<s'>" where
// s' is s with any character outside the WAT idchar set replaced by '_'.
// Because the length is recorded before sanitization, and field boundaries
// are fully determined by the numeric length prefixes, the resulting symbol
// is parseable back into exactly the original field count and lengths: two
// distinct (Class, Name, Params, Return) tuples can never sanitize+concatenate
// to the same string, which is what makes Method/Initializer/Signature
// injective over their respective input domains.
func field(b *strings.Builder, s string) {
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte('_')
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
}

// Method mangles a method reference into a symbol in the "method" namespace
// (prefix "M"), distinct from the initializer and signature namespaces.
func Method(ref classmodel.MethodRef) string {
	var b strings.Builder
	b.WriteByte('M')
	field(&b, ref.Class)
	field(&b, ref.Name)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(len(ref.Params)))
	for _, p := range ref.Params {
		field(&b, p)
	}
	field(&b, ref.Return)
	return b.String()
}

// Initializer mangles a class's <clinit> wrapper into a symbol in the
// "initializer" namespace (prefix "I"), which can never collide with a
// Method or Signature symbol because they use distinct leading bytes.
func Initializer(className string) string {
	var b strings.Builder
	b.WriteByte('I')
	field(&b, className)
	return b.String()
}

// Signature mangles a virtual dispatch signature into a symbol in the
// "signature" namespace (prefix "S"), used for indirect-call function-type
// table entries.
func Signature(sig classmodel.Signature) string {
	var b strings.Builder
	b.WriteByte('S')
	field(&b, sig.Name)
	b.WriteByte('_')
	b.WriteString(strconv.Itoa(len(sig.Params)))
	for _, p := range sig.Params {
		field(&b, p)
	}
	field(&b, sig.Return)
	return b.String()
}

// AllocatorInitialize is the fixed symbol for the synthesized allocator
// bootstrap function.
func AllocatorInitialize() string {
	return Method(classmodel.MethodRef{Class: "Allocator", Name: "initialize", Return: "Address"})
}

// AllocatorAllocate is the fixed symbol for the runtime's bump allocator
// entry point, called once per New node with the target class's runtime
// record address.
func AllocatorAllocate() string {
	return Method(classmodel.MethodRef{Class: "Allocator", Name: "allocate", Params: []string{"I"}, Return: "Address"})
}

// Start is the fixed name of the module's start function. It never
// collides with a mangled symbol: those always begin with 'M', 'I', or 'S'.
const Start = "__start__"

// mustUnique is a debug helper tests use to assert the injectivity
// invariant across a batch of references.
func mustUnique(names ...string) error {
	seen := make(map[string]int, len(names))
	for i, n := range names {
		if j, ok := seen[n]; ok {
			return fmt.Errorf("mangling collision: %q produced by inputs %d and %d", n, j, i)
		}
		seen[n] = i
	}
	return nil
}
