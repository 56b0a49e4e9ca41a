package codegen

import (
	"github.com/pkg/errors"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/exprtree"
	"github.com/Thihup/teavm/layout"
	"github.com/Thihup/teavm/mangle"
	"github.com/Thihup/teavm/vtable"
	"github.com/Thihup/teavm/wasmir"
)

// lowerStmt lowers a node used in statement position: its value, if any, is
// discarded by the caller (a top-level Block already does this by having
// Drop wrap any value-producing child it doesn't use).
func (c *methodCtx) lowerStmt(n exprtree.Node) ([]wasmir.Instr, error) {
	return c.lower(n)
}

func refLike(ref exprtree.MethodRefLike) classmodel.MethodRef {
	return classmodel.MethodRef{Class: ref.Class, Name: ref.Name, Params: ref.Params, Return: ref.Return}
}

func (c *methodCtx) lowerAll(nodes []exprtree.Node) ([]wasmir.Instr, error) {
	var out []wasmir.Instr
	for _, n := range nodes {
		ins, err := c.lower(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ins...)
	}
	return out, nil
}

// lower dispatches on the concrete node type. There is no default/visitor
// indirection: every case the tree can hold is listed explicitly, and a node
// kind not listed is returned as an error rather than a silent no-op.
func (c *methodCtx) lower(n exprtree.Node) ([]wasmir.Instr, error) {
	switch v := n.(type) {
	case exprtree.ConstInt:
		return []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: int64(v.Value)}}, nil
	case exprtree.ConstLong:
		return []wasmir.Instr{{Op: wasmir.OpConstI64, Imm: v.Value}}, nil
	case exprtree.ConstFloat:
		return []wasmir.Instr{{Op: wasmir.OpConstF32, FImm: float64(v.Value)}}, nil
	case exprtree.ConstDouble:
		return []wasmir.Instr{{Op: wasmir.OpConstF64, FImm: v.Value}}, nil

	case exprtree.LocalGet:
		return []wasmir.Instr{{Op: wasmir.OpLocalGet, Imm: int64(v.Index)}}, nil
	case exprtree.LocalSet:
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		return append(val, wasmir.Instr{Op: wasmir.OpLocalSet, Imm: int64(v.Index)}), nil

	case exprtree.FieldGet:
		recv, err := c.lower(v.Receiver)
		if err != nil {
			return nil, err
		}
		offset, err := c.fieldOffset(v.Owner, v.Field)
		if err != nil {
			return nil, err
		}
		return append(recv, wasmir.Instr{Op: fieldLoadOp(uint32(v.FieldTypeSz)), Imm: int64(offset)}), nil
	case exprtree.FieldSet:
		recv, err := c.lower(v.Receiver)
		if err != nil {
			return nil, err
		}
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		offset, err := c.fieldOffset(v.Owner, v.Field)
		if err != nil {
			return nil, err
		}
		out := append(recv, val...)
		return append(out, wasmir.Instr{Op: fieldStoreOp(uint32(v.FieldTypeSz)), Imm: int64(offset)}), nil

	case exprtree.StaticGet:
		addr, err := c.staticAddress(v.Owner, v.Field)
		if err != nil {
			return nil, err
		}
		return []wasmir.Instr{
			{Op: wasmir.OpConstI32, Imm: int64(addr)},
			{Op: fieldLoadOp(uint32(v.FieldTypeSz))},
		}, nil
	case exprtree.StaticSet:
		addr, err := c.staticAddress(v.Owner, v.Field)
		if err != nil {
			return nil, err
		}
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		out := []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: int64(addr)}}
		out = append(out, val...)
		return append(out, wasmir.Instr{Op: fieldStoreOp(uint32(v.FieldTypeSz))}), nil

	case exprtree.New:
		cl, ok := c.gen.Layout.Get(v.Class)
		if !ok {
			return nil, errors.Errorf("%s: New %s: class has no runtime record (interface, structure, or unknown)", c.loc, v.Class)
		}
		c.needs.UsesAllocator = true
		return []wasmir.Instr{
			{Op: wasmir.OpConstI32, Imm: int64(cl.Address)},
			{Op: wasmir.OpCall, Name: mangle.AllocatorAllocate()},
		}, nil

	case exprtree.InvokeStatic:
		args, err := c.lowerAll(v.Args)
		if err != nil {
			return nil, err
		}
		return append(args, wasmir.Instr{Op: wasmir.OpCall, Name: mangle.Method(refLike(v.Target))}), nil
	case exprtree.InvokeSpecial:
		recv, err := c.lower(v.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := c.lowerAll(v.Args)
		if err != nil {
			return nil, err
		}
		out := append(recv, args...)
		return append(out, wasmir.Instr{Op: wasmir.OpCall, Name: mangle.Method(refLike(v.Target))}), nil
	case exprtree.InvokeVirtual:
		return c.lowerInvokeVirtual(v)

	case exprtree.Block:
		return c.lowerAll(v.Children)
	case exprtree.If:
		cond, err := c.lower(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.lower(v.Then)
		if err != nil {
			return nil, err
		}
		var els []wasmir.Instr
		if v.Else != nil {
			els, err = c.lower(v.Else)
			if err != nil {
				return nil, err
			}
		}
		return append(cond, wasmir.Instr{Op: wasmir.OpIf, Block: then, Block2: els}), nil
	case exprtree.Loop:
		body, err := c.lower(v.Body)
		if err != nil {
			return nil, err
		}
		return []wasmir.Instr{{Op: wasmir.OpLoop, Block: body}}, nil
	case exprtree.Break:
		return []wasmir.Instr{{Op: wasmir.OpBr, Imm: 0}}, nil
	case exprtree.Drop:
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		return append(val, wasmir.Instr{Op: wasmir.OpDrop}), nil
	case exprtree.Return:
		return []wasmir.Instr{{Op: wasmir.OpReturn}}, nil
	case exprtree.ReturnValue:
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		return append(val, wasmir.Instr{Op: wasmir.OpReturn}), nil

	case exprtree.BinOp:
		left, err := c.lower(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.lower(v.Right)
		if err != nil {
			return nil, err
		}
		op, err := binOpcode(v.Op, v.Type)
		if err != nil {
			return nil, err
		}
		out := append(left, right...)
		return append(out, wasmir.Instr{Op: op}), nil
	case exprtree.UnOp:
		val, err := c.lower(v.Value)
		if err != nil {
			return nil, err
		}
		return unOpInstrs(v.Op, v.Type, val)
	}

	return nil, errors.Errorf("%s: unhandled expression node %T", c.loc, n)
}

// lowerInvokeVirtual evaluates the receiver once into the method's reserved
// scratch local via local.tee, which both keeps it as the call's first
// argument on the stack and makes it available again afterward to compute
// the dispatch-table index, so the call ends up as:
//
//	receiver, arg0..argN, (dispatch-table-base + slot) -> call_indirect
func (c *methodCtx) lowerInvokeVirtual(v exprtree.InvokeVirtual) ([]wasmir.Instr, error) {
	sig := classmodel.Signature{Name: v.Target.Name, Params: v.Target.Params, Return: v.Target.Return}

	recv, err := c.lower(v.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := c.lowerAll(v.Args)
	if err != nil {
		return nil, err
	}

	slot, trap := c.resolveSlot(v.Target.Class, sig)
	c.scratchUsed = true
	scratchIdx := int64(c.scratch)

	out := append(recv, wasmir.Instr{Op: wasmir.OpLocalTee, Imm: scratchIdx})
	out = append(out, args...)

	if trap {
		return append(out, wasmir.Instr{Op: wasmir.OpUnreachable}), nil
	}

	out = append(out,
		wasmir.Instr{Op: wasmir.OpLocalGet, Imm: scratchIdx},
		wasmir.Instr{Op: wasmir.OpI32Load, Imm: int64(layout.HeaderOffsetVT)},
		wasmir.Instr{Op: wasmir.OpConstI32, Imm: int64(slot)},
		wasmir.Instr{Op: wasmir.OpI32Add},
		wasmir.Instr{Op: wasmir.OpCallIndirect, Name: mangle.Signature(sig)},
	)
	return out, nil
}

// resolveSlot finds the slot index for sig starting at staticClass's own
// dispatch table; a missing table or signature reports a diagnostic and
// returns trap=true rather than failing the whole build.
func (c *methodCtx) resolveSlot(staticClass string, sig classmodel.Signature) (int, bool) {
	table, ok := c.gen.Tables[staticClass]
	if !ok {
		vtable.ReportUnresolved(c.gen.Diagnostics, c.loc, sig)
		return 0, true
	}
	idx := table.SlotIndex(sig)
	if idx < 0 {
		vtable.ReportUnresolved(c.gen.Diagnostics, c.loc, sig)
		return 0, true
	}
	return idx, false
}

func (c *methodCtx) fieldOffset(owner, field string) (uint32, error) {
	cl, ok := c.gen.Layout.Get(owner)
	if !ok {
		return 0, errors.Errorf("%s: field %s.%s: owner has no layout", c.loc, owner, field)
	}
	f, ok := cl.Fields[field]
	if !ok {
		return 0, errors.Errorf("%s: field %s.%s: not found in layout", c.loc, owner, field)
	}
	return f.Offset, nil
}

func (c *methodCtx) staticAddress(owner, field string) (uint32, error) {
	cl, ok := c.gen.Layout.Get(owner)
	if !ok {
		return 0, errors.Errorf("%s: static field %s.%s: owner has no layout", c.loc, owner, field)
	}
	f, ok := cl.StaticFields[field]
	if !ok {
		return 0, errors.Errorf("%s: static field %s.%s: not found in layout", c.loc, owner, field)
	}
	return f.Offset, nil
}

// binOpcode picks the opcode for op at operand type ty. WASM has no untyped
// arithmetic: every opcode is tied to a value type, so the node's resolved
// operand type (set by the decompiler, LocalI32 by default for values it
// never tags, which also covers LocalRef's i32 representation) selects
// between the four parallel opcode families. Float/double "rem" has no WASM
// opcode at all; it must reach the generator through WasmRuntime.remainder
// in the intrinsics registry instead of a BinOp node.
func binOpcode(op string, ty exprtree.LocalType) (wasmir.Op, error) {
	switch ty {
	case exprtree.LocalI64:
		switch op {
		case "add":
			return wasmir.OpI64Add, nil
		case "sub":
			return wasmir.OpI64Sub, nil
		case "mul":
			return wasmir.OpI64Mul, nil
		case "div":
			return wasmir.OpI64DivS, nil
		case "rem":
			return wasmir.OpI64RemS, nil
		case "cmp_eq":
			return wasmir.OpI64Eq, nil
		case "cmp_ne":
			return wasmir.OpI64Ne, nil
		case "cmp_lt":
			return wasmir.OpI64LtS, nil
		case "cmp_gt":
			return wasmir.OpI64GtS, nil
		}
	case exprtree.LocalF32:
		switch op {
		case "add":
			return wasmir.OpF32Add, nil
		case "sub":
			return wasmir.OpF32Sub, nil
		case "mul":
			return wasmir.OpF32Mul, nil
		case "div":
			return wasmir.OpF32Div, nil
		case "cmp_eq":
			return wasmir.OpF32Eq, nil
		case "cmp_ne":
			return wasmir.OpF32Ne, nil
		case "cmp_lt":
			return wasmir.OpF32Lt, nil
		case "cmp_gt":
			return wasmir.OpF32Gt, nil
		}
	case exprtree.LocalF64:
		switch op {
		case "add":
			return wasmir.OpF64Add, nil
		case "sub":
			return wasmir.OpF64Sub, nil
		case "mul":
			return wasmir.OpF64Mul, nil
		case "div":
			return wasmir.OpF64Div, nil
		case "cmp_eq":
			return wasmir.OpF64Eq, nil
		case "cmp_ne":
			return wasmir.OpF64Ne, nil
		case "cmp_lt":
			return wasmir.OpF64Lt, nil
		case "cmp_gt":
			return wasmir.OpF64Gt, nil
		}
	default: // LocalI32, LocalRef
		switch op {
		case "add":
			return wasmir.OpI32Add, nil
		case "sub":
			return wasmir.OpI32Sub, nil
		case "mul":
			return wasmir.OpI32Mul, nil
		case "div":
			return wasmir.OpI32DivS, nil
		case "rem":
			return wasmir.OpI32RemS, nil
		case "cmp_eq":
			return wasmir.OpI32Eq, nil
		case "cmp_ne":
			return wasmir.OpI32Ne, nil
		case "cmp_lt":
			return wasmir.OpI32LtS, nil
		case "cmp_gt":
			return wasmir.OpI32GtS, nil
		}
	}
	return "", errors.Errorf("operator %q is undefined for operand type %s", op, ty)
}

// unOpInstrs appends the instructions for op to val, the already-lowered
// operand. "not" is an i32 boolean negation (eqz). "neg" has no dedicated
// WASM opcode for integers, so it is synthesized as 0-x; floats have a
// native neg opcode that preserves the sign bit of zero and NaN, which a
// synthesized 0-x subtraction would not.
func unOpInstrs(op string, ty exprtree.LocalType, val []wasmir.Instr) ([]wasmir.Instr, error) {
	switch op {
	case "not":
		if ty != exprtree.LocalI32 {
			return nil, errors.Errorf("not is only defined for i32 operands, got %s", ty)
		}
		return append(val, wasmir.Instr{Op: wasmir.OpI32Eqz}), nil
	case "neg":
		switch ty {
		case exprtree.LocalI32, exprtree.LocalRef:
			out := []wasmir.Instr{{Op: wasmir.OpConstI32, Imm: 0}}
			out = append(out, val...)
			return append(out, wasmir.Instr{Op: wasmir.OpI32Sub}), nil
		case exprtree.LocalI64:
			out := []wasmir.Instr{{Op: wasmir.OpConstI64, Imm: 0}}
			out = append(out, val...)
			return append(out, wasmir.Instr{Op: wasmir.OpI64Sub}), nil
		case exprtree.LocalF32:
			return append(val, wasmir.Instr{Op: wasmir.OpF32Neg}), nil
		case exprtree.LocalF64:
			return append(val, wasmir.Instr{Op: wasmir.OpF64Neg}), nil
		default:
			return nil, errors.Errorf("neg is undefined for operand type %s", ty)
		}
	default:
		return nil, errors.Errorf("unknown unary operator %q", op)
	}
}
