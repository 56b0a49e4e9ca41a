// Package buildconfig binds the assembler's tunables (linear memory size,
// output path, entry points to export) to viper, so they can come from a
// config file, environment variables, or CLI flags uniformly.
package buildconfig

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "wasmaot"

// Config is the resolved set of build-time settings for one assembler run.
type Config struct {
	// MemoryPages is the module's initial linear memory size, in 64KiB
	// WebAssembly pages.
	MemoryPages uint32
	// OutputPath is where the rendered module text is written; "-" means
	// stdout.
	OutputPath string
	// EntryPoints lists the exported names of every entry point to wire (the
	// underlying method references come from the controller, not from
	// here). The order of the list does not affect the order of exports.
	EntryPoints []string
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{MemoryPages: 64, OutputPath: "-"}
}

// Load resolves a Config from v, falling back to Default() for any key v
// has no value for.
func Load(v *viper.Viper) Config {
	cfg := Default()
	if v.IsSet("memory-pages") {
		cfg.MemoryPages = uint32(v.GetInt("memory-pages"))
	}
	if v.IsSet("output") {
		cfg.OutputPath = v.GetString("output")
	}
	if v.IsSet("entry-points") {
		cfg.EntryPoints = v.GetStringSlice("entry-points")
	}
	return cfg
}

// Validate rejects configurations the assembler could never act on.
func (c Config) Validate() error {
	if c.MemoryPages == 0 {
		return errors.New("memory-pages must be at least 1")
	}
	return nil
}

// BindEnv maps WASMAOT_-prefixed environment variables onto any flag in
// flags that wasn't explicitly set on the command line, mirroring the
// environment-variable fallback convention the rest of the stack uses.
func BindEnv(flags *pflag.FlagSet) error {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)

	var errs []string
	flags.VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(name) {
			if err := flags.Set(f.Name, fmt.Sprintf("%v", v.Get(name))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})
	if len(errs) > 0 {
		return errors.Errorf("binding environment variables to flags: %s", strings.Join(errs, "; "))
	}
	return nil
}
