// Package assembler implements the Module Assembler: it orchestrates
// layout, virtual table construction, and expression generation into one
// complete wasmir.Module, and implements the Dependency Contributor by
// announcing the runtime helpers the emitted code calls to an external
// reachability engine.
package assembler

import (
	"github.com/pkg/errors"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/codegen"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/corelog"
	"github.com/Thihup/teavm/intrinsics"
	"github.com/Thihup/teavm/layout"
	"github.com/Thihup/teavm/mangle"
	"github.com/Thihup/teavm/metrics"
	"github.com/Thihup/teavm/vtable"
	"github.com/Thihup/teavm/wasmir"
)

// Contributor is the reachability engine this compiler announces runtime
// helper dependencies to. Require may be called more than once for the same
// reference; implementations are expected to dedupe.
type Contributor interface {
	Require(ref classmodel.MethodRef)
}

// Assembler owns one end-to-end compilation run.
type Assembler struct {
	Controller  controller.Controller
	Intrinsics  *intrinsics.Registry
	Contributor Contributor // may be nil
	Metrics     *metrics.Metrics
	Log         corelog.Logger
	MemoryPages uint32
}

// New returns an Assembler with its optional collaborators defaulted.
func New(ctrl controller.Controller) *Assembler {
	return &Assembler{
		Controller:  ctrl,
		Intrinsics:  intrinsics.New(),
		Metrics:     metrics.Noop(),
		Log:         corelog.Global(),
		MemoryPages: 64,
	}
}

// ErrCancelled is returned when Run stops early because the controller
// reported cancellation at some checkpoint. No partial module is ever
// returned alongside it.
var ErrCancelled = errors.New("assembler: cancelled")

// Run executes the full pipeline and returns the assembled module.
func (a *Assembler) Run() (*wasmir.Module, error) {
	universe := a.Controller.ClassLoader()
	diag := a.Controller.Diagnostics()

	pollLayout := func() bool { return a.Controller.WasCancelled() }
	lay, err := layout.Build(universe, pollLayout)
	if err != nil {
		if a.Controller.WasCancelled() {
			a.Metrics.Cancellations.Inc()
			return nil, ErrCancelled
		}
		return nil, errors.Wrap(err, "layout")
	}
	a.Metrics.ClassesLaidOut.Add(float64(len(lay.Classes)))

	tables := vtable.Build(universe, diag)

	gen := &codegen.Generator{
		Layout:      lay,
		Tables:      tables,
		Intrinsics:  a.Intrinsics,
		Diagnostics: diag,
	}

	mod := &wasmir.Module{
		Memory: wasmir.Memory{MinPages: a.MemoryPages},
	}

	seenImports := map[string]bool{}
	usesAllocator := false

	for _, className := range universe.ClassNames() {
		if a.Controller.WasCancelled() {
			a.Metrics.Cancellations.Inc()
			return nil, ErrCancelled
		}
		cd, ok := universe.Get(className)
		if !ok {
			continue
		}
		for _, m := range cd.Methods {
			if a.Controller.WasCancelled() {
				a.Metrics.Cancellations.Inc()
				return nil, ErrCancelled
			}
			loc := controller.Location{Class: className, Method: m.Name}
			fn, needs, ok, err := gen.Generate(cd, m, loc)
			if err != nil {
				return nil, errors.Wrapf(err, "generating %s", loc)
			}
			if !ok {
				continue
			}
			mod.Functions = append(mod.Functions, fn)
			a.Metrics.FunctionsEmitted.Inc()
			if needs.UsesAllocator {
				usesAllocator = true
			}
			for _, ref := range needs.Imports {
				key := ref.Class + "." + ref.Name
				if seenImports[key] {
					continue
				}
				seenImports[key] = true
				mod.Imports = append(mod.Imports, wasmir.Import{
					Module: importModuleOf(m, ref),
					Name:   mangle.Method(ref),
				})
			}
		}
	}
	a.Metrics.Diagnostics.Add(float64(len(diag.All())))

	vtableBase := a.assignDispatchTables(mod, universe, tables)
	a.synthesizeClassRecords(mod, universe, lay, vtableBase)
	a.synthesizeAllocator(mod, lay, usesAllocator)
	a.synthesizeClinitWrappers(mod, universe, lay)
	if a.Controller.WasCancelled() {
		a.Metrics.Cancellations.Inc()
		return nil, ErrCancelled
	}
	a.synthesizeStart(mod, universe)
	a.wireEntryPoints(mod)
	if a.Controller.WasCancelled() {
		a.Metrics.Cancellations.Inc()
		return nil, ErrCancelled
	}
	a.announceDependencies()

	a.Log.Infof("assembled module: %d functions, %d imports, %d diagnostics",
		len(mod.Functions), len(mod.Imports), len(diag.All()))
	return mod, nil
}

func importModuleOf(m *classmodel.MethodDescriptor, ref classmodel.MethodRef) string {
	if ann, ok := m.Annotations[classmodel.AnnotationImport]; ok {
		if mod := ann.Values["module"]; mod != "" {
			return mod
		}
	}
	return "env"
}

// announceDependencies tells the Contributor, if any, about every runtime
// helper that must be kept live regardless of whether this run's own output
// happens to call it by name: WasmRuntime.compare/remainder and
// Allocator.allocate/<clinit> are reachable only through synthesized code
// and opcodes the input program never references directly, so an external
// reachability engine needs them announced unconditionally.
func (a *Assembler) announceDependencies() {
	if a.Contributor == nil {
		return
	}
	for _, ty := range []string{"I", "J", "F", "D"} {
		a.Contributor.Require(classmodel.MethodRef{Class: "WasmRuntime", Name: "compare", Params: []string{ty, ty}, Return: "I"})
	}
	for _, ty := range []string{"F", "D"} {
		a.Contributor.Require(classmodel.MethodRef{Class: "WasmRuntime", Name: "remainder", Params: []string{ty, ty}, Return: ty})
	}
	a.Contributor.Require(classmodel.MethodRef{Class: "Allocator", Name: "allocate", Params: []string{"I"}, Return: "Address"})
	a.Contributor.Require(classmodel.MethodRef{Class: "Allocator", Name: "<clinit>", Return: "V"})
}
