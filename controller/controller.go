// Package controller models the target controller interface: cancellation
// polling, diagnostics reporting, entry-point enumeration, and class-loader
// access. It is a consumed contract owned by the driver; this package also
// supplies a simple concrete implementation for tests and for cmd/wasmaot.
package controller

import (
	"fmt"
	"sync/atomic"

	"github.com/Thihup/teavm/classmodel"
)

// Location identifies a source position for a diagnostic.
type Location struct {
	Class  string
	Method string
}

func (l Location) String() string {
	if l.Method == "" {
		return l.Class
	}
	return fmt.Sprintf("%s.%s", l.Class, l.Method)
}

// Diagnostic is one accumulated, non-fatal input-model error.
type Diagnostic struct {
	Location Location
	Message  string
}

// Diagnostics accumulates non-fatal errors reported during emit. Invariant
// violations and I/O failures are never recorded here: those unwind the
// pipeline as Go errors.
type Diagnostics interface {
	Error(loc Location, format string, args ...interface{})
	All() []Diagnostic
}

// Controller is the external collaborator consumed by the assembler.
type Controller interface {
	ClassLoader() classmodel.ClassUniverse
	Diagnostics() Diagnostics
	WasCancelled() bool
	EntryPoints() map[string]classmodel.MethodRef
}

// SliceDiagnostics is a minimal Diagnostics that stores reports in a slice,
// in report order.
type SliceDiagnostics struct {
	items []Diagnostic
}

// NewSliceDiagnostics returns an empty SliceDiagnostics.
func NewSliceDiagnostics() *SliceDiagnostics {
	return &SliceDiagnostics{}
}

// Error implements Diagnostics.
func (d *SliceDiagnostics) Error(loc Location, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{Location: loc, Message: fmt.Sprintf(format, args...)})
}

// All implements Diagnostics.
func (d *SliceDiagnostics) All() []Diagnostic {
	return d.items
}

// Simple is a concrete Controller backed by a fixed universe, a mutable
// cancellation flag safe for concurrent Cancel() calls, and a static
// entry-point table.
type Simple struct {
	universe    classmodel.ClassUniverse
	diagnostics *SliceDiagnostics
	cancelled   atomic.Bool
	entryPoints map[string]classmodel.MethodRef
}

// NewSimple returns a Simple controller over universe with the given
// entry points (name -> method reference).
func NewSimple(universe classmodel.ClassUniverse, entryPoints map[string]classmodel.MethodRef) *Simple {
	if entryPoints == nil {
		entryPoints = map[string]classmodel.MethodRef{}
	}
	return &Simple{
		universe:    universe,
		diagnostics: NewSliceDiagnostics(),
		entryPoints: entryPoints,
	}
}

// ClassLoader implements Controller.
func (s *Simple) ClassLoader() classmodel.ClassUniverse { return s.universe }

// Diagnostics implements Controller.
func (s *Simple) Diagnostics() Diagnostics { return s.diagnostics }

// WasCancelled implements Controller.
func (s *Simple) WasCancelled() bool { return s.cancelled.Load() }

// EntryPoints implements Controller.
func (s *Simple) EntryPoints() map[string]classmodel.MethodRef { return s.entryPoints }

// Cancel requests cancellation; the next checkpoint poll observes it.
func (s *Simple) Cancel() { s.cancelled.Store(true) }
