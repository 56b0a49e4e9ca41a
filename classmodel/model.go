// Package classmodel models the linked class universe produced by the
// (out of scope) front end. It is a consumed contract: the core never
// mutates a ClassUniverse, only reads it.
package classmodel

import "github.com/Thihup/teavm/exprtree"

// MethodRef identifies a method uniquely by owner, name and erased
// signature. It carries a slice field, so it is not comparable with == or
// usable as a map key directly; callers needing that should key on
// mangle.Method(ref) instead.
type MethodRef struct {
	Class  string
	Name   string
	Params []string
	Return string
}

// Signature is a MethodRef without the owning class, used for virtual
// dispatch slot matching: overrides share a signature, not a class.
type Signature struct {
	Name   string
	Params []string
	Return string
}

// Sig drops the owning class from a MethodRef.
func (r MethodRef) Sig() Signature {
	params := make([]string, len(r.Params))
	copy(params, r.Params)
	return Signature{Name: r.Name, Params: params, Return: r.Return}
}

// Equal reports whether two signatures match exactly.
func (s Signature) Equal(other Signature) bool {
	if s.Name != other.Name || s.Return != other.Return || len(s.Params) != len(other.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// Annotation is a generic key-value bag attached to classes or methods, e.g.
// Import{Module: "env", Name: "foo"} or StaticInit{}.
type Annotation struct {
	Name   string
	Values map[string]string
}

// Well-known annotation class names.
const (
	AnnotationImport     = "Import"
	AnnotationStaticInit = "StaticInit"
)

// Sentinel class names: their native methods have no executable body at the
// target level and are skipped by the expression generator.
const (
	SentinelAddress   = "Address"
	SentinelStructure = "Structure"
)

// FieldDescriptor describes one field of a class.
type FieldDescriptor struct {
	Name   string
	Type   string // e.g. "I", "J", "F", "D", "L<class>;"
	Static bool
}

// MethodDescriptor describes one method of a class.
type MethodDescriptor struct {
	Owner       string
	Name        string
	Params      []string
	Return      string
	Native      bool
	Static      bool
	Abstract    bool
	Annotations map[string]Annotation
	Body        *exprtree.MethodBody // nil for abstract/native/no-body methods
}

// Ref returns the MethodRef naming this method.
func (m *MethodDescriptor) Ref() MethodRef {
	return MethodRef{Class: m.Owner, Name: m.Name, Params: m.Params, Return: m.Return}
}

// HasAnnotation reports whether the method carries the named annotation.
func (m *MethodDescriptor) HasAnnotation(name string) bool {
	_, ok := m.Annotations[name]
	return ok
}

// ClassDescriptor describes one linked class.
type ClassDescriptor struct {
	Name        string
	Super       string // "" for a root class
	Interfaces  []string
	Fields      []FieldDescriptor
	Methods     []*MethodDescriptor
	Annotations map[string]Annotation
	IsInterface bool
	// IsStructure marks a layout-only "structure" class: no runtime
	// descriptor, cannot be heap allocated, no <clinit> wrapper.
	// The two sentinel classes (Address, Structure) are always structures.
	IsStructure bool
}

// HasAnnotation reports whether the class carries the named annotation.
func (c *ClassDescriptor) HasAnnotation(name string) bool {
	_, ok := c.Annotations[name]
	return ok
}

// IsSentinel reports whether this class is one of the two sentinel classes
// whose native methods represent raw memory operations with no body.
func (c *ClassDescriptor) IsSentinel() bool {
	return c.Name == SentinelAddress || c.Name == SentinelStructure
}

// Clinit returns the class's static initializer method, if declared.
func (c *ClassDescriptor) Clinit() (*MethodDescriptor, bool) {
	for _, m := range c.Methods {
		if m.Static && m.Name == "<clinit>" {
			return m, true
		}
	}
	return nil, false
}

// ClassUniverse is the read-only, ordered view over the linked program the
// front end produces. Iteration order must be stable and reproducible
// across runs: it is the sole source of determinism for assigned addresses.
type ClassUniverse interface {
	// ClassNames returns every class name in stable, deterministic order.
	ClassNames() []string
	// Get looks up a class by name.
	Get(name string) (*ClassDescriptor, bool)
}
