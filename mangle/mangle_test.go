package mangle

import (
	"testing"

	"github.com/Thihup/teavm/classmodel"
)

func TestMethodInjective(t *testing.T) {
	refs := []classmodel.MethodRef{
		{Class: "Animal", Name: "speak", Params: nil, Return: "V"},
		{Class: "Dog", Name: "speak", Params: nil, Return: "V"},
		{Class: "Animal", Name: "speak", Params: []string{"I"}, Return: "V"},
		{Class: "Animal", Name: "speaks", Params: nil, Return: "V"},
		{Class: "A", Name: "n", Params: []string{"I", "J"}, Return: "V"},
		{Class: "A", Name: "n", Params: []string{"IJ"}, Return: "V"},
	}
	var names []string
	for _, r := range refs {
		names = append(names, Method(r))
	}
	if err := mustUnique(names...); err != nil {
		t.Fatal(err)
	}
}

func TestMethodDeterministic(t *testing.T) {
	ref := classmodel.MethodRef{Class: "Foo", Name: "bar", Params: []string{"I", "Ljava/lang/String;"}, Return: "I"}
	a := Method(ref)
	b := Method(ref)
	if a != b {
		t.Fatalf("mangling not reproducible: %q vs %q", a, b)
	}
}

func TestNamespacesDisjoint(t *testing.T) {
	m := Method(classmodel.MethodRef{Class: "X", Name: "Y"})
	i := Initializer("X")
	s := Signature(classmodel.Signature{Name: "Y"})
	if err := mustUnique(m, i, s, Start); err != nil {
		t.Fatal(err)
	}
}
