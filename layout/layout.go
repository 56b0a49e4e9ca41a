// Package layout implements the Class Layout Generator: it assigns every
// heap class a runtime record address, a 16-byte header, a static-field
// area, and assigns every instance field a byte offset within its
// allocated objects.
package layout

import (
	"github.com/pkg/errors"

	"github.com/Thihup/teavm/classmodel"
)

// Runtime class record header layout, fixed for every heap class:
//
//	offset 0:  i32 instance size in bytes (including this header)
//	offset 4:  i32 static-initializer flag (0 until the <clinit> wrapper first
//	           runs; the wrapper sets it before calling <clinit>)
//	offset 8:  i32 pointer to the dispatch table, or 0 if the class has none
//	offset 12: i32 pointer to the superclass's own runtime record, or 0
const (
	HeaderSize       = 16
	headerOffsetSize = 0
	headerOffsetInit = 4
	headerOffsetVT   = 8
	headerOffsetSup  = 12
)

// classBase is the first address ever handed out, leaving address 0 free to
// serve as a universal "null" sentinel.
const classBase = 256

// align4 rounds n up to the next multiple of 4.
func align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// align4096 rounds n up to the next multiple of 4096.
func align4096(n uint32) uint32 {
	return (n + 4095) &^ 4095
}

func sizeOf(fieldType string) uint32 {
	switch fieldType {
	case "J", "D":
		return 8
	case "F", "I":
		return 4
	default:
		// Object references and the Address sentinel are both a single i32
		// pointer in linear memory.
		return 4
	}
}

// FieldOffset records the position assigned to one field: a byte offset
// within an instance for an instance field, an absolute address for a static
// field.
type FieldOffset struct {
	Name   string
	Offset uint32
	Size   uint32
}

// ClassLayout is everything the rest of the pipeline needs to know about
// one class's memory shape.
type ClassLayout struct {
	Name string
	// Address is this class's own runtime record address. Zero for
	// structure classes, which have no runtime record.
	Address uint32
	// InstanceSize is the total size, in bytes, of a heap instance
	// (HeaderSize + every instance field, own and inherited).
	InstanceSize uint32
	// Fields maps instance field name to its offset within an instance,
	// including inherited fields.
	Fields map[string]FieldOffset
	// StaticBase is the address at which this class's static fields begin.
	// Static storage lives right after the class record itself.
	StaticBase uint32
	// StaticFields maps static field name to its absolute address.
	StaticFields map[string]FieldOffset
}

// Layout is the full result of running the generator over a ClassUniverse.
type Layout struct {
	Classes map[string]ClassLayout
	// HeapOrigin is the first address available to the allocator: the next
	// 4096-aligned address after the last class record and its statics.
	HeapOrigin uint32
}

// Get returns the layout of a class, or ok=false if name was never laid out
// (e.g. an interface, which has no runtime record of its own).
func (l Layout) Get(name string) (ClassLayout, bool) {
	c, ok := l.Classes[name]
	return c, ok
}

// Build assigns addresses and offsets to every class in universe, in
// ClassUniverse order, which is what makes the result reproducible across
// runs given the same input. poll is called before each class is laid out;
// if it returns true the build stops immediately and returns an error
// rather than a partial Layout.
func Build(universe classmodel.ClassUniverse, poll func() bool) (Layout, error) {
	result := Layout{Classes: map[string]ClassLayout{}}
	cursor := uint32(classBase)

	for _, name := range universe.ClassNames() {
		if poll != nil && poll() {
			return Layout{}, errors.New("layout: cancelled")
		}
		cd, ok := universe.Get(name)
		if !ok {
			continue
		}
		if cd.IsInterface || cd.IsStructure {
			continue
		}

		cl, next, err := layoutClass(cd, result.Classes, cursor)
		if err != nil {
			return Layout{}, errors.Wrapf(err, "laying out class %q", name)
		}
		result.Classes[name] = cl
		cursor = next
	}

	result.HeapOrigin = align4096(cursor)
	return result, nil
}

func layoutClass(cd *classmodel.ClassDescriptor, prior map[string]ClassLayout, cursor uint32) (ClassLayout, uint32, error) {
	address := cursor

	var (
		instanceCursor uint32
		fields         = map[string]FieldOffset{}
	)
	if cd.Super != "" {
		parent, ok := prior[cd.Super]
		if !ok {
			return ClassLayout{}, 0, errors.Errorf("superclass %q laid out after subclass %q", cd.Super, cd.Name)
		}
		instanceCursor = parent.InstanceSize
		for k, v := range parent.Fields {
			fields[k] = v
		}
	} else {
		instanceCursor = HeaderSize
	}

	for _, f := range cd.Fields {
		if f.Static {
			continue
		}
		sz := sizeOf(f.Type)
		instanceCursor = align4(instanceCursor)
		fields[f.Name] = FieldOffset{Name: f.Name, Offset: instanceCursor, Size: sz}
		instanceCursor += sz
	}
	instanceSize := align4(instanceCursor)

	// The class record occupies [address, address+HeaderSize), and its
	// static storage immediately follows.
	staticBase := address + HeaderSize
	staticCursor := staticBase
	staticFields := map[string]FieldOffset{}
	for _, f := range cd.Fields {
		if !f.Static {
			continue
		}
		sz := sizeOf(f.Type)
		staticCursor = align4(staticCursor)
		staticFields[f.Name] = FieldOffset{Name: f.Name, Offset: staticCursor, Size: sz}
		staticCursor += sz
	}

	next := align4(staticCursor)
	return ClassLayout{
		Name:         cd.Name,
		Address:      address,
		InstanceSize: instanceSize,
		Fields:       fields,
		StaticBase:   staticBase,
		StaticFields: staticFields,
	}, next, nil
}

// HeaderOffsetSize, HeaderOffsetInit, HeaderOffsetVT and HeaderOffsetSuper
// expose the fixed header field offsets to codegen and assembler without
// requiring them to know the layout of the constants above.
const (
	HeaderOffsetSize  = headerOffsetSize
	HeaderOffsetInit  = headerOffsetInit
	HeaderOffsetVT    = headerOffsetVT
	HeaderOffsetSuper = headerOffsetSup
)
