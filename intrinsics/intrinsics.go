// Package intrinsics implements the runtime intrinsics registry: an
// exact-match lookup from a native method reference to a Go function that
// emits its WebAssembly body inline, bypassing both the expression
// generator's normal lowering and any module import.
package intrinsics

import (
	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/wasmir"
)

// Emitter inlines one intrinsic method's body. args are the already-lowered
// argument expressions' instruction sequences, in declaration order; there
// is no receiver argument, as every registered intrinsic is static.
type Emitter func(args [][]wasmir.Instr) []wasmir.Instr

// Registry is an additive, exact-match method-ref table.
type Registry struct {
	byKey map[string]Emitter
}

func key(ref classmodel.MethodRef) string {
	s := ref.Class + "." + ref.Name + "("
	for _, p := range ref.Params {
		s += p + ","
	}
	return s + ")" + ref.Return
}

// New returns a Registry seeded with the wasm-runtime intrinsic group:
// primitive comparison helpers, lowered to an inline less-than/equal
// sequence, and floating remainder helpers, lowered to a call of a
// runtime-provided fmod function.
func New() *Registry {
	r := &Registry{byKey: map[string]Emitter{}}
	r.registerWasmRuntime()
	return r
}

// Register adds or replaces the emitter for ref. Registration is additive:
// callers build up a Registry by calling Register repeatedly, typically
// once at process startup.
func (r *Registry) Register(ref classmodel.MethodRef, emit Emitter) {
	r.byKey[key(ref)] = emit
}

// Lookup returns the emitter registered for ref, if any.
func (r *Registry) Lookup(ref classmodel.MethodRef) (Emitter, bool) {
	e, ok := r.byKey[key(ref)]
	return e, ok
}

// remainderHelper names the runtime-provided fmod implementation for a
// floating type: WASM has no float remainder opcode, so unlike compare,
// this intrinsic lowers to a call rather than an inline instruction
// sequence.
func remainderHelper(ty string) Emitter {
	name := "Mfmod" + ty
	return func(args [][]wasmir.Instr) []wasmir.Instr {
		var out []wasmir.Instr
		out = append(out, args[0]...)
		out = append(out, args[1]...)
		out = append(out, wasmir.Instr{Op: wasmir.OpCall, Name: name})
		return out
	}
}

// registerWasmRuntime seeds the four-type compare family and the two-type
// floating remainder family.
func (r *Registry) registerWasmRuntime() {
	const class = "WasmRuntime"

	for _, ty := range []string{"I", "J", "F", "D"} {
		ref := classmodel.MethodRef{Class: class, Name: "compare", Params: []string{ty, ty}, Return: "I"}
		r.Register(ref, compareEmitter(ty))
	}

	r.Register(classmodel.MethodRef{Class: class, Name: "remainder", Params: []string{"F", "F"}, Return: "F"},
		remainderHelper("F"))
	r.Register(classmodel.MethodRef{Class: class, Name: "remainder", Params: []string{"D", "D"}, Return: "D"},
		remainderHelper("D"))
}

// lowerEquality returns the per-type less-than and equal opcodes the
// three-way compare is built from. The result of either test is always i32,
// regardless of the operand width, so the outer branching logic in
// compareEmitter never varies by type.
func lowerEquality(ty string) (lt, eq wasmir.Op) {
	switch ty {
	case "J":
		return wasmir.OpI64LtS, wasmir.OpI64Eq
	case "F":
		return wasmir.OpF32Lt, wasmir.OpF32Eq
	case "D":
		return wasmir.OpF64Lt, wasmir.OpF64Eq
	default:
		return wasmir.OpI32LtS, wasmir.OpI32Eq
	}
}

// compareEmitter returns a three-way compare for one primitive type,
// synthesized from a less-than and an equal test: (a<b) ? -1 : (a==b ? 0 : 1).
func compareEmitter(ty string) Emitter {
	lt, eq := lowerEquality(ty)
	return func(args [][]wasmir.Instr) []wasmir.Instr {
		var out []wasmir.Instr
		out = append(out, args[0]...)
		out = append(out, args[1]...)
		out = append(out, wasmir.Instr{Op: lt})
		out = append(out, wasmir.Instr{Op: wasmir.OpIf,
			Block: []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: -1}},
			Block2: append(append(append([]wasmir.Instr{}, args[0]...), args[1]...),
				wasmir.Instr{Op: eq},
				wasmir.Instr{Op: wasmir.OpIf,
					Block:  []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: 0}},
					Block2: []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: 1}},
				},
			),
		})
		return out
	}
}
