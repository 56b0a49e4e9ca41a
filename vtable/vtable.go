// Package vtable implements the Virtual Table Provider: scans every method
// body for virtual call sites and builds, per class, an ordered dispatch
// table keyed by method signature.
package vtable

import (
	"fmt"
	"strings"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/exprtree"
)

// sigKey returns a canonical string for sig. classmodel.Signature carries a
// slice field and so cannot be used as a map key directly.
func sigKey(sig classmodel.Signature) string {
	return sig.Name + "(" + strings.Join(sig.Params, ",") + ")" + sig.Return
}

// Slot is one entry of a class's dispatch table.
type Slot struct {
	Signature classmodel.Signature
	Target    classmodel.MethodRef
	// Trap is set when the slot could not be resolved to a known method: a
	// diagnostic was already reported and the expression generator emits a
	// trap stub here instead of a call.
	Trap bool
}

// Table is one class's ordered dispatch table.
type Table []Slot

// SlotIndex returns the index of sig in t, or -1.
func (t Table) SlotIndex(sig classmodel.Signature) int {
	for i, s := range t {
		if s.Signature.Equal(sig) {
			return i
		}
	}
	return -1
}

// Tables maps class name to its dispatch table. Classes with no virtual
// methods reachable anywhere in the program have an empty (possibly nil)
// table: tables exist only for signatures actually invoked virtually
// somewhere, so unreachable overrides are never assigned a slot.
type Tables map[string]Table

// Build scans universe for virtual call sites and returns, for every class,
// its dispatch table. Build itself reports no diagnostics and marks no slot
// Trap: a call site whose signature has no slot in its static class's table
// is reported through ReportUnresolved, and lowered to a trap, by the
// expression generator when it resolves that call site.
func Build(universe classmodel.ClassUniverse, diag controller.Diagnostics) Tables {
	virtual := collectVirtualSignatures(universe)

	b := &builder{
		universe: universe,
		virtual:  virtual,
		diag:     diag,
		resolved: map[string]Table{},
	}
	tables := Tables{}
	for _, name := range universe.ClassNames() {
		tables[name] = b.resolve(name)
	}
	return tables
}

// collectVirtualSignatures walks every method body of every class, in
// ClassUniverse order, and records the signature of every InvokeVirtual
// target encountered.
func collectVirtualSignatures(universe classmodel.ClassUniverse) map[string]bool {
	out := map[string]bool{}
	for _, name := range universe.ClassNames() {
		cd, _ := universe.Get(name)
		for _, m := range cd.Methods {
			if m.Body == nil {
				continue
			}
			exprtree.Walk(m.Body.Tree, func(n exprtree.Node) bool {
				if inv, ok := n.(exprtree.InvokeVirtual); ok {
					sig := classmodel.Signature{
						Name:   inv.Target.Name,
						Params: inv.Target.Params,
						Return: inv.Target.Return,
					}
					out[sigKey(sig)] = true
				}
				return true
			})
		}
	}
	return out
}

type builder struct {
	universe classmodel.ClassUniverse
	virtual  map[string]bool
	diag     controller.Diagnostics
	resolved map[string]Table
}

// resolve returns class name's dispatch table, memoized, walking the
// superclass chain first so overrides reuse the parent's slot index.
func (b *builder) resolve(name string) Table {
	if t, ok := b.resolved[name]; ok {
		return t
	}
	cd, ok := b.universe.Get(name)
	if !ok {
		b.resolved[name] = nil
		return nil
	}

	var table Table
	if cd.Super != "" {
		parent := b.resolve(cd.Super)
		table = append(table, parent...)
	}

	for _, m := range cd.Methods {
		if m.Static || m.Name == "<clinit>" || m.Name == "<init>" {
			continue
		}
		sig := m.Ref().Sig()
		if idx := table.SlotIndex(sig); idx >= 0 {
			// Override: reuse the inherited slot, replace its target.
			table[idx].Target = m.Ref()
			table[idx].Trap = false
			continue
		}
		if b.virtual[sigKey(sig)] {
			table = append(table, Slot{Signature: sig, Target: m.Ref()})
		}
	}

	b.resolved[name] = table
	return table
}

// ReportUnresolved reports a diagnostic and returns a trap slot for a
// virtual call site whose target could not be found in any table: dispatch
// to an unresolved target never panics or aborts the build.
func ReportUnresolved(diag controller.Diagnostics, loc controller.Location, sig classmodel.Signature) Slot {
	diag.Error(loc, "unresolved virtual call target: %s", fmt.Sprintf("%s(%v)%s", sig.Name, sig.Params, sig.Return))
	return Slot{Signature: sig, Trap: true}
}
