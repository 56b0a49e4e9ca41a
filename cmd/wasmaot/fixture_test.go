package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Thihup/teavm/assembler"
	"github.com/Thihup/teavm/controller"
)

func TestLoadFixtureAndAssemble(t *testing.T) {
	f, err := os.Open("testdata/example.json")
	require.NoError(t, err)
	defer f.Close()

	universe, entryPoints, err := loadFixture(f)
	require.NoError(t, err)
	require.Contains(t, entryPoints, "bump")

	ctrl := controller.NewSimple(universe, entryPoints)
	asm := assembler.New(ctrl)
	mod, err := asm.Run()
	require.NoError(t, err)
	require.Empty(t, ctrl.Diagnostics().All())

	var exported bool
	for _, fn := range mod.Functions {
		for _, exp := range fn.Exports {
			if exp == "bump" {
				exported = true
			}
		}
	}
	require.True(t, exported, "expected Counter.bump to be exported as \"bump\"")
}

func TestFilterEntryPointsRestrictsToNamedSubset(t *testing.T) {
	f, err := os.Open("testdata/example.json")
	require.NoError(t, err)
	defer f.Close()

	_, entryPoints, err := loadFixture(f)
	require.NoError(t, err)

	filtered := filterEntryPoints(entryPoints, []string{"nonexistent"})
	require.Empty(t, filtered)

	unfiltered := filterEntryPoints(entryPoints, nil)
	require.Equal(t, entryPoints, unfiltered)
}
