package vtable

import (
	"testing"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/exprtree"
)

func method(owner, name string, body exprtree.Node) *classmodel.MethodDescriptor {
	return &classmodel.MethodDescriptor{
		Owner:  owner,
		Name:   name,
		Return: "V",
		Body:   &exprtree.MethodBody{Tree: body},
	}
}

func TestSlotInheritanceAndOverride(t *testing.T) {
	universe := classmodel.NewInMemory()

	speakCall := exprtree.InvokeVirtual{
		Target:   exprtree.MethodRefLike{Name: "speak", Return: "V"},
		Receiver: exprtree.LocalGet{Index: 0},
	}

	universe.Add(&classmodel.ClassDescriptor{
		Name: "Animal",
		Methods: []*classmodel.MethodDescriptor{
			method("Animal", "speak", exprtree.Return{}),
			method("Animal", "main", speakCall),
		},
	})
	universe.Add(&classmodel.ClassDescriptor{
		Name:  "Dog",
		Super: "Animal",
		Methods: []*classmodel.MethodDescriptor{
			method("Dog", "speak", exprtree.Return{}),
		},
	})

	diag := controller.NewSliceDiagnostics()
	tables := Build(universe, diag)

	animal := tables["Animal"]
	dog := tables["Dog"]
	if len(animal) != 1 {
		t.Fatalf("Animal table = %v, want 1 slot", animal)
	}
	if len(dog) != 1 {
		t.Fatalf("Dog table = %v, want 1 slot", dog)
	}
	if dog[0].Target.Class != "Dog" {
		t.Fatalf("Dog.speak override target = %v, want Dog", dog[0].Target)
	}
	if !animal[0].Signature.Equal(dog[0].Signature) {
		t.Fatalf("override did not reuse inherited slot signature: %v vs %v", animal[0].Signature, dog[0].Signature)
	}
	if len(diag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag.All())
	}
}

func TestNoVirtualCallSiteYieldsEmptyTable(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{
		Name: "Plain",
		Methods: []*classmodel.MethodDescriptor{
			method("Plain", "helper", exprtree.Return{}),
		},
	})
	diag := controller.NewSliceDiagnostics()
	tables := Build(universe, diag)
	if len(tables["Plain"]) != 0 {
		t.Fatalf("Plain table = %v, want empty (no virtual call sites anywhere)", tables["Plain"])
	}
}
