package layout

import (
	"testing"

	"github.com/Thihup/teavm/classmodel"
)

func TestSingleClassNoFields(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Empty"})

	l, err := Build(universe, nil)
	if err != nil {
		t.Fatal(err)
	}
	cl, ok := l.Get("Empty")
	if !ok {
		t.Fatal("Empty class not laid out")
	}
	if cl.Address != classBase {
		t.Fatalf("Address = %d, want %d", cl.Address, classBase)
	}
	if cl.InstanceSize != HeaderSize {
		t.Fatalf("InstanceSize = %d, want %d (header only, no fields)", cl.InstanceSize, HeaderSize)
	}
	if l.HeapOrigin%4096 != 0 {
		t.Fatalf("HeapOrigin %d not 4096-aligned", l.HeapOrigin)
	}
	if l.HeapOrigin <= cl.Address {
		t.Fatalf("HeapOrigin %d must be past the last class record at %d", l.HeapOrigin, cl.Address)
	}
}

func TestInheritedFieldsComeFirst(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{
		Name:   "Base",
		Fields: []classmodel.FieldDescriptor{{Name: "x", Type: "I"}},
	})
	universe.Add(&classmodel.ClassDescriptor{
		Name:   "Derived",
		Super:  "Base",
		Fields: []classmodel.FieldDescriptor{{Name: "y", Type: "J"}},
	})

	l, err := Build(universe, nil)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := l.Get("Base")
	derived, _ := l.Get("Derived")

	if derived.Fields["x"].Offset != base.Fields["x"].Offset {
		t.Fatalf("inherited field x offset changed: base=%d derived=%d", base.Fields["x"].Offset, derived.Fields["x"].Offset)
	}
	if derived.Fields["y"].Offset < base.InstanceSize {
		t.Fatalf("own field y at %d overlaps inherited layout (base size %d)", derived.Fields["y"].Offset, base.InstanceSize)
	}
	if derived.Fields["y"].Offset%4 != 0 {
		t.Fatalf("field y offset %d not 4-byte aligned", derived.Fields["y"].Offset)
	}
}

func TestStructureAndInterfaceClassesHaveNoRecord(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "Address", IsStructure: true})
	universe.Add(&classmodel.ClassDescriptor{Name: "Runnable", IsInterface: true})
	universe.Add(&classmodel.ClassDescriptor{Name: "Concrete"})

	l, err := Build(universe, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Get("Address"); ok {
		t.Fatal("structure class should not be laid out")
	}
	if _, ok := l.Get("Runnable"); ok {
		t.Fatal("interface class should not be laid out")
	}
	if _, ok := l.Get("Concrete"); !ok {
		t.Fatal("Concrete class should be laid out")
	}
}

func TestCancellationStopsBuild(t *testing.T) {
	universe := classmodel.NewInMemory()
	universe.Add(&classmodel.ClassDescriptor{Name: "A"})
	_, err := Build(universe, func() bool { return true })
	if err == nil {
		t.Fatal("expected an error when the poll callback reports cancellation")
	}
}
