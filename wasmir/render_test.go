package wasmir

import (
	"strings"
	"testing"
)

func TestRenderBasicModule(t *testing.T) {
	m := &Module{
		Memory: Memory{MinPages: 1},
		Functions: []Function{
			{
				Name: "Mfoo",
				Type: FuncType{Params: []ValType{I32}, Results: []ValType{I32}},
				Body: []Instr{
					{Op: OpLocalGet, Imm: 0},
					{Op: OpConstI32, Imm: 1},
					{Op: OpI32Add},
					{Op: OpReturn},
				},
			},
		},
		Start: "__start__",
	}

	var b strings.Builder
	Render(&b, m)
	out := b.String()
	for _, want := range []string{"Mfoo", "local.get 0", "i32.const 1", "i32.add", "start: __start__"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
}

func TestFunctionIndexOrdering(t *testing.T) {
	m := &Module{
		Imports:   []Import{{Module: "env", Name: "native1"}},
		Functions: []Function{{Name: "local1"}, {Name: "local2"}},
	}
	idx, ok := m.FunctionIndex("native1")
	if !ok || idx != 0 {
		t.Fatalf("native1 index = %d, %v; want 0, true", idx, ok)
	}
	idx, ok = m.FunctionIndex("local2")
	if !ok || idx != 2 {
		t.Fatalf("local2 index = %d, %v; want 2, true", idx, ok)
	}
	if _, ok := m.FunctionIndex("missing"); ok {
		t.Fatal("missing function should not resolve")
	}
}
