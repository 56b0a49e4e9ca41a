package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/exprtree"
	"github.com/Thihup/teavm/wasmir"
)

func method(owner, name string, static bool, body exprtree.Node) *classmodel.MethodDescriptor {
	m := &classmodel.MethodDescriptor{Owner: owner, Name: name, Static: static, Return: "V"}
	if body != nil {
		m.Body = &exprtree.MethodBody{Tree: body}
	}
	return m
}

func TestSingleClassNoMethods(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Empty"})

	ctrl := controller.NewSimple(universe, nil)
	a := New(ctrl)
	mod, err := a.Run()
	require.NoError(t, err)
	assert.Len(t, mod.Data, 1, "one class record data segment")
	assert.Equal(t, "__start__", mod.Start)
}

func TestStaticInitOrdering(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{
		Name:        "A",
		Annotations: map[string]classmodel.Annotation{classmodel.AnnotationStaticInit: {Name: classmodel.AnnotationStaticInit}},
		Methods:     []*classmodel.MethodDescriptor{method("A", "<clinit>", true, exprtree.Return{})},
	})
	universe.Add(&classmodel.ClassDescriptor{
		Name:        "B",
		Annotations: map[string]classmodel.Annotation{classmodel.AnnotationStaticInit: {Name: classmodel.AnnotationStaticInit}},
		Methods:     []*classmodel.MethodDescriptor{method("B", "<clinit>", true, exprtree.Return{})},
	})

	ctrl := controller.NewSimple(universe, nil)
	a := New(ctrl)
	mod, err := a.Run()
	require.NoError(t, err)

	var start *wasmir.Function
	for i := range mod.Functions {
		if mod.Functions[i].Name == "__start__" {
			start = &mod.Functions[i]
		}
	}
	require.NotNil(t, start, "expected a start function")

	var calls []string
	for _, in := range start.Body {
		if in.Op == wasmir.OpCall {
			calls = append(calls, in.Name)
		}
	}
	idxA, idxB := -1, -1
	for i, name := range calls {
		if strings.Contains(name, "_1_A") {
			idxA = i
		}
		if strings.Contains(name, "_1_B") {
			idxB = i
		}
	}
	require.GreaterOrEqual(t, idxA, 0, "expected a call into A's initializer, got %v", calls)
	require.GreaterOrEqual(t, idxB, 0, "expected a call into B's initializer, got %v", calls)
	assert.Less(t, idxA, idxB, "A's initializer should run before B's (declaration order)")
}

func TestVirtualDispatchSlotInheritance(t *testing.T) {
	universe := classmodel.NewInMemory()
	speakCall := exprtree.InvokeVirtual{
		Target:   exprtree.MethodRefLike{Name: "speak", Return: "V"},
		Receiver: exprtree.LocalGet{Index: 0},
	}
	universe.Add(&classmodel.ClassDescriptor{
		Name: "Animal",
		Methods: []*classmodel.MethodDescriptor{
			method("Animal", "speak", false, exprtree.Return{}),
			method("Animal", "poke", false, speakCall),
		},
	})
	universe.Add(&classmodel.ClassDescriptor{
		Name:  "Dog",
		Super: "Animal",
		Methods: []*classmodel.MethodDescriptor{
			method("Dog", "speak", false, exprtree.Return{}),
		},
	})

	ctrl := controller.NewSimple(universe, nil)
	a := New(ctrl)
	mod, err := a.Run()
	require.NoError(t, err)
	assert.Len(t, mod.Table.Elements, 2, "Animal.speak and Dog.speak each get a table entry")
}

func TestNativeWithoutImportDiagnosticDoesNotAbort(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{
		Name:    "Foo",
		Methods: []*classmodel.MethodDescriptor{{Owner: "Foo", Name: "mystery", Native: true}},
	})

	ctrl := controller.NewSimple(universe, nil)
	a := New(ctrl)
	_, err := a.Run()
	require.NoError(t, err)
	assert.Len(t, ctrl.Diagnostics().All(), 1)
}

func TestEntryPointExportToleratesMissingTarget(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Foo"})

	entryPoints := map[string]classmodel.MethodRef{
		"main": {Class: "Foo", Name: "doesNotExist", Return: "V"},
	}
	ctrl := controller.NewSimple(universe, entryPoints)
	a := New(ctrl)
	mod, err := a.Run()
	require.NoError(t, err)
	for _, fn := range mod.Functions {
		assert.NotContains(t, fn.Exports, "main", "should not export a pruned entry point")
	}
}

func TestCancellationYieldsNoModule(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Foo"})

	ctrl := controller.NewSimple(universe, nil)
	ctrl.Cancel()
	a := New(ctrl)
	mod, err := a.Run()
	require.Error(t, err)
	assert.Nil(t, mod)
}

func TestDependencyContributorAnnouncesAllocatorUnconditionally(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Box"})

	ctrl := controller.NewSimple(universe, nil)
	a := New(ctrl)
	contrib := NewSliceContributor()
	a.Contributor = contrib
	_, err := a.Run()
	require.NoError(t, err)

	var foundAllocate, foundClinit bool
	for _, ref := range contrib.Required() {
		if ref.Class == "Allocator" && ref.Name == "allocate" {
			foundAllocate = true
		}
		if ref.Class == "Allocator" && ref.Name == "<clinit>" {
			foundClinit = true
		}
	}
	assert.True(t, foundAllocate, "expected Allocator.allocate to be announced even when nothing in the program allocates")
	assert.True(t, foundClinit, "expected Allocator.<clinit> to be announced even when nothing in the program allocates")
}
