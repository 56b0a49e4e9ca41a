package wasmir

import (
	"fmt"
	"io"
	"strconv"
)

// RenderOption controls the textual Renderer.
type RenderOption struct {
	// Contents, if set, additionally dumps the raw bytes of every data
	// segment after the instruction listing.
	Contents bool
}

// Render writes a WAT-like, human-readable rendering of m to w. It is not a
// binary encoder and is not meant to be parsed back by a WASM runtime: it
// exists for tests and for the output of cmd/wasmaot's emit command.
func Render(w io.Writer, m *Module, opts ...RenderOption) {
	fmt.Fprintln(w, "memory:", m.Memory.MinPages, "pages")
	fmt.Fprintln(w, "table:", m.Table.MinSize, "entries")
	for i, name := range m.Table.Elements {
		if name == "" {
			continue
		}
		fmt.Fprintf(w, "  [%d] -> %s\n", i, name)
	}
	fmt.Fprintln(w, "imports:")
	for _, imp := range m.Imports {
		fmt.Fprintf(w, "  - %s.%s %s\n", imp.Module, imp.Name, renderType(imp.Type))
	}
	fmt.Fprintln(w, "globals:")
	for _, g := range m.Globals {
		mut := "const"
		if g.Mutable {
			mut = "mut"
		}
		fmt.Fprintf(w, "  - %s %s %s\n", g.Name, g.Type, mut)
	}
	fmt.Fprintln(w, "functions:")
	for _, fn := range m.Functions {
		fmt.Fprintf(w, "  - %s %s\n", fn.Name, renderType(fn.Type))
		if len(fn.Exports) > 0 {
			fmt.Fprintln(w, "    exports:", fn.Exports)
		}
		renderBody(w, fn.Body, "    ")
	}
	fmt.Fprintln(w, "data:")
	for _, seg := range m.Data {
		fmt.Fprintf(w, "  - offset=%d len=%d\n", seg.Offset, len(seg.Bytes))
	}
	if m.Start != "" {
		fmt.Fprintln(w, "start:", m.Start)
	}
	for _, opt := range opts {
		if opt.Contents {
			for _, seg := range m.Data {
				fmt.Fprintf(w, "data[offset=%d]: % x\n", seg.Offset, seg.Bytes)
			}
		}
	}
}

func renderType(t FuncType) string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ")"
	if len(t.Results) > 0 {
		s += " -> "
		for i, r := range t.Results {
			if i > 0 {
				s += ", "
			}
			s += r.String()
		}
	}
	return s
}

func renderBody(w io.Writer, body []Instr, indent string) {
	for _, in := range body {
		renderInstr(w, in, indent)
	}
}

func renderInstr(w io.Writer, in Instr, indent string) {
	switch in.Op {
	case OpConstI32, OpConstI64:
		fmt.Fprintf(w, "%s%s %d\n", indent, in.Op, in.Imm)
	case OpConstF32, OpConstF64:
		fmt.Fprintf(w, "%s%s %s\n", indent, in.Op, strconv.FormatFloat(in.FImm, 'g', -1, 64))
	case OpLocalGet, OpLocalSet, OpLocalTee, OpBr, OpBrIf:
		fmt.Fprintf(w, "%s%s %d\n", indent, in.Op, in.Imm)
	case OpGlobalGet, OpGlobalSet, OpCall:
		fmt.Fprintf(w, "%s%s %s\n", indent, in.Op, in.Name)
	case OpCallIndirect:
		fmt.Fprintf(w, "%s%s (type %s)\n", indent, in.Op, in.Name)
	case OpI32Load, OpI32Load8, OpI64Load, OpF32Load, OpF64Load,
		OpI32Store, OpI32Store8, OpI64Store, OpF32Store, OpF64Store:
		fmt.Fprintf(w, "%s%s offset=%d\n", indent, in.Op, in.Imm)
	case OpBlock, OpLoop:
		fmt.Fprintf(w, "%s%s\n", indent, in.Op)
		renderBody(w, in.Block, indent+"  ")
		fmt.Fprintf(w, "%send\n", indent)
	case OpIf:
		fmt.Fprintf(w, "%s%s\n", indent, in.Op)
		renderBody(w, in.Block, indent+"  ")
		if len(in.Block2) > 0 {
			fmt.Fprintf(w, "%selse\n", indent)
			renderBody(w, in.Block2, indent+"  ")
		}
		fmt.Fprintf(w, "%send\n", indent)
	default:
		fmt.Fprintf(w, "%s%s\n", indent, in.Op)
	}
}
