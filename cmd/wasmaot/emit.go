package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Thihup/teavm/assembler"
	"github.com/Thihup/teavm/buildconfig"
	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/controller"
	"github.com/Thihup/teavm/corelog"
	"github.com/Thihup/teavm/wasmir"
)

type emitParams struct {
	classesPath  string
	memoryPages  int
	outputPath   string
	entryPoints  []string
	dumpContents bool
}

func initEmit(root *cobra.Command) {
	params := emitParams{memoryPages: int(buildconfig.Default().MemoryPages), outputPath: buildconfig.Default().OutputPath}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Lower a class-universe fixture into a WebAssembly module",
		Long: `Emit reads a JSON class-universe fixture (classes, methods, and the
structured expression trees their bodies decompile to), runs the full
lowering pipeline, and writes the resulting module's textual rendering to
--output (or stdout).

	$ wasmaot emit --classes program.json
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := buildconfig.BindEnv(cmd.Flags()); err != nil {
				return err
			}
			return runEmit(cmd, params)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.classesPath, "classes", "", "path to the JSON class-universe fixture (required)")
	flags.IntVar(&params.memoryPages, "memory-pages", params.memoryPages, "initial linear memory size, in 64KiB pages")
	flags.StringVar(&params.outputPath, "output", params.outputPath, `output path for the rendered module text ("-" for stdout)`)
	flags.StringSliceVar(&params.entryPoints, "entry-points", nil, "if set, only export entry points named here (the order given is not significant)")
	flags.BoolVar(&params.dumpContents, "dump-contents", false, "additionally dump raw data-segment bytes")
	_ = cmd.MarkFlagRequired("classes")

	root.AddCommand(cmd)
}

func runEmit(cmd *cobra.Command, params emitParams) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	cfg := buildconfig.Load(v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := corelog.Global()

	f, err := os.Open(params.classesPath)
	if err != nil {
		return errors.Wrap(err, "opening fixture")
	}
	defer f.Close()

	universe, entryPoints, err := loadFixture(f)
	if err != nil {
		return err
	}
	entryPoints = filterEntryPoints(entryPoints, cfg.EntryPoints)

	ctrl := controller.NewSimple(universe, entryPoints)
	asm := assembler.New(ctrl)
	asm.MemoryPages = uint32(cfg.MemoryPages)
	asm.Log = log
	contributor := assembler.NewSliceContributor()
	asm.Contributor = contributor

	mod, err := asm.Run()
	if err != nil {
		return errors.Wrap(err, "assembling module")
	}

	for _, diag := range ctrl.Diagnostics().All() {
		log.Warnf("%s: %s", diag.Location, diag.Message)
	}
	for _, ref := range contributor.Required() {
		log.Debugf("runtime dependency required: %s.%s", ref.Class, ref.Name)
	}

	out, closeOut, err := openOutput(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	opts := []wasmir.RenderOption{}
	if params.dumpContents {
		opts = append(opts, wasmir.RenderOption{Contents: true})
	}
	wasmir.Render(out, mod, opts...)
	return nil
}

// filterEntryPoints restricts entryPoints to the names in only, if only is
// non-empty: the fixture's entry-point table names every entry point the
// program declares, while a run can choose to wire just a subset of them.
func filterEntryPoints(entryPoints map[string]classmodel.MethodRef, only []string) map[string]classmodel.MethodRef {
	if len(only) == 0 {
		return entryPoints
	}
	filtered := make(map[string]classmodel.MethodRef, len(only))
	for _, name := range only {
		if ref, ok := entryPoints[name]; ok {
			filtered[name] = ref
		}
	}
	return filtered
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "creating output %s", path)
	}
	return f, func() { f.Close() }, nil
}
