package assembler

import (
	"encoding/binary"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/layout"
	"github.com/Thihup/teavm/mangle"
	"github.com/Thihup/teavm/vtable"
	"github.com/Thihup/teavm/wasmir"
)

// assignDispatchTables appends every class's dispatch table to the module's
// single indirect-call table, in ClassUniverse order, and returns each
// class's base index into it. A class absent from the returned map has no
// virtual methods anywhere in the program; callers treat that as dispatch
// pointer 0.
func (a *Assembler) assignDispatchTables(mod *wasmir.Module, universe classmodel.ClassUniverse, tables vtable.Tables) map[string]uint32 {
	base := map[string]uint32{}
	for _, name := range universe.ClassNames() {
		table := tables[name]
		if len(table) == 0 {
			continue
		}
		base[name] = uint32(len(mod.Table.Elements))
		for _, slot := range table {
			if slot.Trap {
				mod.Table.Elements = append(mod.Table.Elements, "")
				continue
			}
			mod.Table.Elements = append(mod.Table.Elements, mangle.Method(slot.Target))
		}
	}
	mod.Table.MinSize = uint32(len(mod.Table.Elements))
	return base
}

// synthesizeClassRecords emits one 16-byte data segment per heap class,
// matching the runtime header layout: instance size, an init flag that
// starts at 0, the class's dispatch-table base (or 0 if it has none), and
// its superclass's record address (or 0 at the root). This is the one
// memory initializer every class contributes; a <clinit> wrapper only ever
// flips the init flag and runs side effects, it never re-lays out a header.
func (a *Assembler) synthesizeClassRecords(mod *wasmir.Module, universe classmodel.ClassUniverse, lay layout.Layout, vtableBase map[string]uint32) {
	for _, name := range universe.ClassNames() {
		cl, ok := lay.Get(name)
		if !ok {
			continue
		}
		cd, _ := universe.Get(name)

		var superAddr uint32
		if cd.Super != "" {
			if sup, ok := lay.Get(cd.Super); ok {
				superAddr = sup.Address
			}
		}

		header := make([]byte, layout.HeaderSize)
		binary.LittleEndian.PutUint32(header[layout.HeaderOffsetSize:], cl.InstanceSize)
		binary.LittleEndian.PutUint32(header[layout.HeaderOffsetInit:], 0)
		binary.LittleEndian.PutUint32(header[layout.HeaderOffsetVT:], vtableBase[name])
		binary.LittleEndian.PutUint32(header[layout.HeaderOffsetSuper:], superAddr)

		mod.Data = append(mod.Data, wasmir.DataSegment{
			Offset: int32(cl.Address),
			Bytes:  header,
		})
	}
}

const heapPtrGlobal = "heap_ptr"

// synthesizeAllocator adds the bump-allocator bootstrap and allocate entry
// points, seeded with the real heap origin layout computed. They are only
// added if something in the program actually allocates: an allocator
// nothing calls is dead weight the module assembler has no reason to emit.
func (a *Assembler) synthesizeAllocator(mod *wasmir.Module, lay layout.Layout, usesAllocator bool) {
	if !usesAllocator {
		return
	}

	mod.Globals = append(mod.Globals, wasmir.Global{
		Name: heapPtrGlobal, Type: wasmir.I32, Mutable: true,
		Init: []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: int64(lay.HeapOrigin)}},
	})

	// Allocator.initialize(): (re)seeds heap_ptr at the first free address
	// past every class record, and returns it.
	mod.Functions = append(mod.Functions, wasmir.Function{
		Name: mangle.AllocatorInitialize(),
		Type: wasmir.FuncType{Results: []wasmir.ValType{wasmir.I32}},
		Body: []wasmir.Instr{
			{Op: wasmir.OpConstI32, Imm: int64(lay.HeapOrigin)},
			{Op: wasmir.OpGlobalSet, Name: heapPtrGlobal},
			{Op: wasmir.OpGlobalGet, Name: heapPtrGlobal},
			{Op: wasmir.OpReturn},
		},
	})

	// Allocator.allocate(classAddr): bumps heap_ptr by the class's instance
	// size, copies the class record's size and dispatch-table words into the
	// new object's header, and returns the address that used to be heap_ptr.
	mod.Functions = append(mod.Functions, wasmir.Function{
		Name:   mangle.AllocatorAllocate(),
		Type:   wasmir.FuncType{Params: []wasmir.ValType{wasmir.I32}, Results: []wasmir.ValType{wasmir.I32}},
		Locals: []wasmir.ValType{wasmir.I32}, // local 1: the allocated object's address
		Body: []wasmir.Instr{
			{Op: wasmir.OpGlobalGet, Name: heapPtrGlobal},
			{Op: wasmir.OpLocalSet, Imm: 1},
			// heap_ptr += classAddr.size (header offset 0)
			{Op: wasmir.OpGlobalGet, Name: heapPtrGlobal},
			{Op: wasmir.OpLocalGet, Imm: 0},
			{Op: wasmir.OpI32Load, Imm: int64(layout.HeaderOffsetSize)},
			{Op: wasmir.OpI32Add},
			{Op: wasmir.OpGlobalSet, Name: heapPtrGlobal},
			// new object's size and dispatch-table words := the class record's
			{Op: wasmir.OpLocalGet, Imm: 1},
			{Op: wasmir.OpLocalGet, Imm: 0},
			{Op: wasmir.OpI32Load},
			{Op: wasmir.OpI32Store},
			{Op: wasmir.OpLocalGet, Imm: 1},
			{Op: wasmir.OpLocalGet, Imm: 0},
			{Op: wasmir.OpI32Load, Imm: int64(layout.HeaderOffsetVT)},
			{Op: wasmir.OpI32Store, Imm: int64(layout.HeaderOffsetVT)},
			{Op: wasmir.OpLocalGet, Imm: 1},
			{Op: wasmir.OpReturn},
		},
	})
}

// synthesizeClinitWrappers emits one guarded wrapper per class that
// declares a static initializer: the guard check, the flag store, and the
// call all live in a single block, in that order, so a wrapper invoked
// re-entrantly during its own <clinit> (a class referencing itself while
// initializing) observes the flag already set and simply falls through.
func (a *Assembler) synthesizeClinitWrappers(mod *wasmir.Module, universe classmodel.ClassUniverse, lay layout.Layout) {
	for _, name := range universe.ClassNames() {
		cd, ok := universe.Get(name)
		if !ok {
			continue
		}
		clinit, ok := cd.Clinit()
		if !ok {
			continue
		}
		cl, found := lay.Get(name)
		if !found {
			continue
		}

		body := []wasmir.Instr{{
			Op: wasmir.OpBlock,
			Block: []wasmir.Instr{
				{Op: wasmir.OpConstI32, Imm: int64(cl.Address)},
				{Op: wasmir.OpI32Load, Imm: int64(layout.HeaderOffsetInit)},
				{Op: wasmir.OpBrIf, Imm: 0},
				{Op: wasmir.OpConstI32, Imm: int64(cl.Address)},
				{Op: wasmir.OpConstI32, Imm: 1},
				{Op: wasmir.OpI32Store, Imm: int64(layout.HeaderOffsetInit)},
				{Op: wasmir.OpCall, Name: mangle.Method(clinit.Ref())},
			},
		}}

		mod.Functions = append(mod.Functions, wasmir.Function{
			Name: mangle.Initializer(name),
			Body: body,
		})
	}
}

// synthesizeStart emits the module's start function: it runs the allocator
// bootstrap (if present), then calls every StaticInit-annotated class's
// wrapper, in ClassUniverse order, which is what makes static-initialization
// order reproducible across runs. A wrapper whose class was pruned (it was
// never laid out) is silently skipped rather than treated as an error.
func (a *Assembler) synthesizeStart(mod *wasmir.Module, universe classmodel.ClassUniverse) {
	var body []wasmir.Instr
	if _, ok := mod.FunctionIndex(mangle.AllocatorInitialize()); ok {
		body = append(body, wasmir.Instr{Op: wasmir.OpCall, Name: mangle.AllocatorInitialize()}, wasmir.Instr{Op: wasmir.OpDrop})
	}

	for _, name := range universe.ClassNames() {
		cd, ok := universe.Get(name)
		if !ok || !cd.HasAnnotation(classmodel.AnnotationStaticInit) {
			continue
		}
		if _, ok := mod.FunctionIndex(mangle.Initializer(name)); ok {
			body = append(body, wasmir.Instr{Op: wasmir.OpCall, Name: mangle.Initializer(name)})
		}
	}

	mod.Functions = append(mod.Functions, wasmir.Function{
		Name: mangle.Start,
		Body: body,
	})
	mod.Start = mangle.Start
}

// wireEntryPoints exports every entry point the controller named, silently
// skipping any whose target function was never emitted (e.g. it was pruned
// because nothing else in the program reached it).
func (a *Assembler) wireEntryPoints(mod *wasmir.Module) {
	for exportName, ref := range a.Controller.EntryPoints() {
		target := mangle.Method(ref)
		for i := range mod.Functions {
			if mod.Functions[i].Name == target {
				mod.Functions[i].Exports = append(mod.Functions[i].Exports, exportName)
				break
			}
		}
	}
}
