package wasmir

// Op names the opcode of an Instr. Only the subset this backend ever emits
// is represented; there is no general-purpose WASM assembler here.
type Op string

const (
	OpConstI32 Op = "i32.const"
	OpConstI64 Op = "i64.const"
	OpConstF32 Op = "f32.const"
	OpConstF64 Op = "f64.const"

	OpLocalGet Op = "local.get"
	OpLocalSet Op = "local.set"
	OpLocalTee Op = "local.tee"
	OpGlobalGet Op = "global.get"
	OpGlobalSet Op = "global.set"

	OpI32Load  Op = "i32.load"
	OpI32Load8 Op = "i32.load8_u"
	OpI64Load  Op = "i64.load"
	OpF32Load  Op = "f32.load"
	OpF64Load  Op = "f64.load"
	OpI32Store Op = "i32.store"
	OpI32Store8 Op = "i32.store8"
	OpI64Store Op = "i64.store"
	OpF32Store Op = "f32.store"
	OpF64Store Op = "f64.store"

	OpCall         Op = "call"
	OpCallIndirect Op = "call_indirect"

	OpDrop   Op = "drop"
	OpReturn Op = "return"

	OpBlock Op = "block"
	OpLoop  Op = "loop"
	OpIf    Op = "if"
	OpElse  Op = "else"
	OpEnd   Op = "end"
	OpBr    Op = "br"
	OpBrIf  Op = "br_if"

	OpI32Add Op = "i32.add"
	OpI32Sub Op = "i32.sub"
	OpI32Mul Op = "i32.mul"
	OpI32DivS Op = "i32.div_s"
	OpI32RemS Op = "i32.rem_s"
	OpI32Eq  Op = "i32.eq"
	OpI32Ne  Op = "i32.ne"
	OpI32LtS Op = "i32.lt_s"
	OpI32GtS Op = "i32.gt_s"
	OpI32Eqz Op = "i32.eqz"

	OpI64Add  Op = "i64.add"
	OpI64Sub  Op = "i64.sub"
	OpI64Mul  Op = "i64.mul"
	OpI64DivS Op = "i64.div_s"
	OpI64RemS Op = "i64.rem_s"
	OpI64Eq   Op = "i64.eq"
	OpI64Ne   Op = "i64.ne"
	OpI64LtS  Op = "i64.lt_s"
	OpI64GtS  Op = "i64.gt_s"

	OpF32Add Op = "f32.add"
	OpF32Sub Op = "f32.sub"
	OpF32Mul Op = "f32.mul"
	OpF32Div Op = "f32.div"
	OpF32Eq  Op = "f32.eq"
	OpF32Ne  Op = "f32.ne"
	OpF32Lt  Op = "f32.lt"
	OpF32Gt  Op = "f32.gt"
	OpF32Neg Op = "f32.neg"

	OpF64Add Op = "f64.add"
	OpF64Sub Op = "f64.sub"
	OpF64Mul Op = "f64.mul"
	OpF64Div Op = "f64.div"
	OpF64Eq  Op = "f64.eq"
	OpF64Ne  Op = "f64.ne"
	OpF64Lt  Op = "f64.lt"
	OpF64Gt  Op = "f64.gt"
	OpF64Neg Op = "f64.neg"

	OpUnreachable Op = "unreachable"
)

// Instr is one instruction. Fields are interpreted according to Op:
// Imm holds a constant operand (i32.const, branch depth, local index, ...),
// FImm holds a float constant for f32.const/f64.const, Name holds a callee
// or global name (for call_indirect, the mangled signature symbol of its
// expected FuncType), Block holds the body for block/loop/if instructions,
// and Block2 the else arm of an if.
type Instr struct {
	Op     Op
	Imm    int64
	FImm   float64
	Name   string
	Block  []Instr
	Block2 []Instr // the "else" arm, only used with OpIf
}
