package intrinsics

import (
	"testing"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/wasmir"
)

func TestCompareIntIsRegistered(t *testing.T) {
	r := New()
	ref := classmodel.MethodRef{Class: "WasmRuntime", Name: "compare", Params: []string{"I", "I"}, Return: "I"}
	emit, ok := r.Lookup(ref)
	if !ok {
		t.Fatal("WasmRuntime.compare(I,I) not registered")
	}
	body := emit([][]wasmir.Instr{
		{{Op: wasmir.OpLocalGet, Imm: 0}},
		{{Op: wasmir.OpLocalGet, Imm: 1}},
	})
	if len(body) == 0 {
		t.Fatal("compare emitter produced no instructions")
	}
}

func TestUnregisteredMethodNotFound(t *testing.T) {
	r := New()
	ref := classmodel.MethodRef{Class: "Unrelated", Name: "foo"}
	if _, ok := r.Lookup(ref); ok {
		t.Fatal("unregistered method should not resolve")
	}
}

func TestRegisterOverridesExisting(t *testing.T) {
	r := New()
	ref := classmodel.MethodRef{Class: "Custom", Name: "op"}
	r.Register(ref, func(args [][]wasmir.Instr) []wasmir.Instr {
		return []wasmir.Instr{{Op: wasmir.OpUnreachable}}
	})
	emit, ok := r.Lookup(ref)
	if !ok {
		t.Fatal("custom intrinsic not found after Register")
	}
	body := emit(nil)
	if len(body) != 1 || body[0].Op != wasmir.OpUnreachable {
		t.Fatalf("unexpected body: %v", body)
	}
}
