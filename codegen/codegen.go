// Package codegen implements the Expression Generator: it lowers one
// method's structured expression tree into a wasmir function body, routing
// invocations through intrinsics, direct calls, or indirect virtual
// dispatch as appropriate.
package codegen

import (
	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/exprtree"
	"github.com/Thihup/teavm/intrinsics"
	"github.com/Thihup/teavm/layout"
	"github.com/Thihup/teavm/mangle"
	"github.com/Thihup/teavm/vtable"
	"github.com/Thihup/teavm/wasmir"
)

// Needs collects the side information a generated method body creates for
// the caller: native Import methods referenced (so the assembler can
// declare the import), and whether a New node requires the allocator to
// exist at all.
type Needs struct {
	Imports       []classmodel.MethodRef
	UsesAllocator bool
}

// Generator lowers method bodies given the layout and dispatch tables
// computed for the whole program.
type Generator struct {
	Layout     layout.Layout
	Tables     vtable.Tables
	Intrinsics *intrinsics.Registry
	Diagnostics controller.Diagnostics
}

func valTypeOf(t exprtree.LocalType) wasmir.ValType {
	switch t {
	case exprtree.LocalI64:
		return wasmir.I64
	case exprtree.LocalF32:
		return wasmir.F32
	case exprtree.LocalF64:
		return wasmir.F64
	default:
		return wasmir.I32 // LocalI32 and LocalRef are both represented as i32
	}
}

func fieldLoadOp(size uint32) wasmir.Op {
	switch size {
	case 8:
		return wasmir.OpI64Load
	default:
		return wasmir.OpI32Load
	}
}

func fieldStoreOp(size uint32) wasmir.Op {
	switch size {
	case 8:
		return wasmir.OpI64Store
	default:
		return wasmir.OpI32Store
	}
}

// Generate lowers m's body into a wasmir.Function. loc identifies m for
// diagnostics. It returns ok=false, with no error and no diagnostic, for
// sentinel-class natives and for non-native methods with no body (abstract
// or interface methods): those have nothing to lower and are simply absent
// from the output.
func (g *Generator) Generate(cd *classmodel.ClassDescriptor, m *classmodel.MethodDescriptor, loc controller.Location) (wasmir.Function, Needs, bool, error) {
	ref := m.Ref()

	if m.Native {
		if _, ok := g.Intrinsics.Lookup(ref); ok {
			return g.lowerIntrinsic(ref), Needs{}, true, nil
		}
		if cd.IsSentinel() {
			return wasmir.Function{}, Needs{}, false, nil
		}
		if imp, ok := m.Annotations[classmodel.AnnotationImport]; ok {
			fn, needs := g.lowerImport(ref, imp, m.Static)
			return fn, needs, true, nil
		}
		g.Diagnostics.Error(loc, "native method %s has no Import annotation and is not a runtime sentinel", ref.Name)
		return wasmir.Function{}, Needs{}, false, nil
	}

	if m.Body == nil {
		return wasmir.Function{}, Needs{}, false, nil
	}

	// Local slot 0 is the receiver for every instance method, matching the
	// JVM-style local-variable-table convention the decompiler uses: "this"
	// occupies a real slot distinct from the method's declared parameters.
	wasmParams := len(ref.Params)
	if !m.Static {
		wasmParams++
	}
	c := &methodCtx{
		gen:     g,
		loc:     loc,
		scratch: wasmParams + len(m.Body.LocalTypes),
	}
	body, err := c.lowerStmt(m.Body.Tree)
	if err != nil {
		return wasmir.Function{}, Needs{}, false, err
	}

	locals := make([]wasmir.ValType, len(m.Body.LocalTypes))
	for i, t := range m.Body.LocalTypes {
		locals[i] = valTypeOf(t)
	}
	if c.scratchUsed {
		locals = append(locals, wasmir.I32)
	}

	fn := wasmir.Function{
		Name:   mangle.Method(ref),
		Type:   funcType(ref, m.Static),
		Locals: locals,
		Body:   body,
	}
	return fn, c.needs, true, nil
}

// funcType builds a method's wasm signature. Instance methods get an
// implicit leading i32 receiver parameter, ahead of ref.Params, matching the
// implicit "this" slot 0 the body's LocalGet/LocalSet nodes expect; static
// methods and the intrinsics/import helpers (always static utility
// functions) get none.
func funcType(ref classmodel.MethodRef, static bool) wasmir.FuncType {
	t := wasmir.FuncType{}
	if !static {
		t.Params = append(t.Params, wasmir.I32)
	}
	for _, p := range ref.Params {
		t.Params = append(t.Params, paramValType(p))
	}
	if ref.Return != "" && ref.Return != "V" {
		t.Results = []wasmir.ValType{paramValType(ref.Return)}
	}
	return t
}

func paramValType(descr string) wasmir.ValType {
	switch descr {
	case "J":
		return wasmir.I64
	case "F":
		return wasmir.F32
	case "D":
		return wasmir.F64
	default:
		return wasmir.I32
	}
}

// lowerIntrinsic materializes a registered intrinsic as an ordinary
// function whose body is the emitter's inlined instruction sequence applied
// to its own parameters as arguments, so call sites never need to know
// whether their target was an intrinsic.
func (g *Generator) lowerIntrinsic(ref classmodel.MethodRef) wasmir.Function {
	emit, _ := g.Intrinsics.Lookup(ref)
	args := make([][]wasmir.Instr, len(ref.Params))
	for i := range ref.Params {
		args[i] = []wasmir.Instr{{Op: wasmir.OpLocalGet, Imm: int64(i)}}
	}
	return wasmir.Function{
		Name: mangle.Method(ref),
		Type: funcType(ref, true), // runtime intrinsics are always static utility functions
		Body: emit(args),
	}
}

// lowerImport synthesizes a trivial forwarding function for a native method
// annotated Import: its entire body is a single call to the declared
// import, since the decompiler never produces a tree for methods with no
// target-level body. static controls whether an implicit receiver param is
// forwarded along with ref.Params.
func (g *Generator) lowerImport(ref classmodel.MethodRef, imp classmodel.Annotation, static bool) (wasmir.Function, Needs) {
	module := imp.Values["module"]
	name := imp.Values["name"]
	if name == "" {
		name = ref.Name
	}

	wasmParams := len(ref.Params)
	if !static {
		wasmParams++
	}
	var body []wasmir.Instr
	for i := 0; i < wasmParams; i++ {
		body = append(body, wasmir.Instr{Op: wasmir.OpLocalGet, Imm: int64(i)})
	}
	body = append(body, wasmir.Instr{Op: wasmir.OpCall, Name: module + "." + name})

	fn := wasmir.Function{
		Name: mangle.Method(ref),
		Type: funcType(ref, static),
		Body: body,
	}
	return fn, Needs{Imports: []classmodel.MethodRef{ref}}
}

// methodCtx holds the per-method lowering state: the program-wide Generator
// plus local bookkeeping (accumulated Needs, whether the scratch local for
// virtual-dispatch receiver duplication has been allocated).
type methodCtx struct {
	gen         *Generator
	loc         controller.Location
	needs       Needs
	scratch     int // index of the reserved scratch local
	scratchUsed bool
}
