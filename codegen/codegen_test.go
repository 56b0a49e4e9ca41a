package codegen

import (
	"testing"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/exprtree"
	"github.com/Thihup/teavm/intrinsics"
	"github.com/Thihup/teavm/layout"
	"github.com/Thihup/teavm/vtable"
)

func newGenerator(t *testing.T, universe classmodel.ClassUniverse) (*Generator, *controller.SliceDiagnostics) {
	t.Helper()
	l, err := layout.Build(universe, nil)
	if err != nil {
		t.Fatal(err)
	}
	diag := controller.NewSliceDiagnostics()
	tables := vtable.Build(universe, diag)
	return &Generator{
		Layout:      l,
		Tables:      tables,
		Intrinsics:  intrinsics.New(),
		Diagnostics: diag,
	}, diag
}

func TestGenerateSimpleReturn(t *testing.T) {
	universe := classmodel.NewInMemory()
	m := &classmodel.MethodDescriptor{
		Owner:  "Foo",
		Name:   "answer",
		Return: "I",
		Body: &exprtree.MethodBody{
			Tree: exprtree.ReturnValue{Value: exprtree.ConstInt{Value: 42}},
		},
	}
	cd := &classmodel.ClassDescriptor{Name: "Foo", Methods: []*classmodel.MethodDescriptor{m}}
	universe.Add(cd)

	g, diag := newGenerator(t, universe)
	fn, needs, ok, err := g.Generate(cd, m, controller.Location{Class: "Foo", Method: "answer"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok=true for a normal method")
	}
	if len(fn.Body) == 0 {
		t.Fatal("expected a non-empty body")
	}
	if needs.UsesAllocator {
		t.Fatal("a plain int return should not need the allocator")
	}
	if len(diag.All()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diag.All())
	}
}

func TestGenerateNativeWithoutImportReportsDiagnostic(t *testing.T) {
	universe := classmodel.NewInMemory()
	m := &classmodel.MethodDescriptor{Owner: "Foo", Name: "mystery", Native: true}
	cd := &classmodel.ClassDescriptor{Name: "Foo", Methods: []*classmodel.MethodDescriptor{m}}
	universe.Add(cd)

	g, diag := newGenerator(t, universe)
	_, _, ok, err := g.Generate(cd, m, controller.Location{Class: "Foo", Method: "mystery"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected ok=false for a native method with no Import and no sentinel class")
	}
	if len(diag.All()) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %v", diag.All())
	}
}

func TestGenerateSentinelNativeIsSkipped(t *testing.T) {
	universe := classmodel.NewInMemory()
	m := &classmodel.MethodDescriptor{Owner: classmodel.SentinelAddress, Name: "add", Native: true}
	cd := &classmodel.ClassDescriptor{Name: classmodel.SentinelAddress, IsStructure: true, Methods: []*classmodel.MethodDescriptor{m}}
	universe.Add(cd)

	g, diag := newGenerator(t, universe)
	_, _, ok, err := g.Generate(cd, m, controller.Location{Class: classmodel.SentinelAddress, Method: "add"})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("sentinel native methods should be skipped, not emitted")
	}
	if len(diag.All()) != 0 {
		t.Fatalf("sentinel natives should never raise a diagnostic, got %v", diag.All())
	}
}

func TestGenerateNewAllocatesViaAllocator(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Box"})
	m := &classmodel.MethodDescriptor{
		Owner:  "Foo",
		Name:   "make",
		Return: "LBox;",
		Body: &exprtree.MethodBody{
			Tree: exprtree.ReturnValue{Value: exprtree.New{Class: "Box"}},
		},
	}
	cd := &classmodel.ClassDescriptor{Name: "Foo", Methods: []*classmodel.MethodDescriptor{m}}
	universe.Add(cd)

	g, _ := newGenerator(t, universe)
	_, needs, ok, err := g.Generate(cd, m, controller.Location{Class: "Foo", Method: "make"})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !needs.UsesAllocator {
		t.Fatal("New should mark UsesAllocator")
	}
}
