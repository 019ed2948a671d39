package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/objbridge/config"
	"github.com/signadot/objbridge/debug"
	"github.com/signadot/objbridge/internal/scene"
	"github.com/signadot/objbridge/metrics"
	"github.com/signadot/objbridge/reflector"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='configuration file (yaml)'"`
	Verbose    bool   `cli:"name=v desc='debug logging and engine traces'"`
	Color      bool   `cli:"name=color desc='color diagnostics and diffs'"`

	Main *cli.Command
}

type TypesConfig struct {
	*MainConfig
	Props bool `cli:"name=p desc='also list the members of each type'"`

	Types *cli.Command
}

type SchemaConfig struct {
	*MainConfig
	All bool `cli:"name=all desc='one document with every registered type'"`
	Y   bool `cli:"name=y aliases=yaml desc='output yaml'"`

	Schema *cli.Command
}

type GetConfig struct {
	*MainConfig
	Depth     int  `cli:"name=depth desc='max depth (0: configured default)'"`
	Recursive bool `cli:"name=r desc='expand nested entities instead of writing references'"`
	Y         bool `cli:"name=y aliases=yaml desc='output yaml'"`
	Plain     bool `cli:"name=plain desc='output the plain projection'"`

	Get *cli.Command
}

type SetConfig struct {
	*MainConfig
	Depth int  `cli:"name=depth desc='max depth (0: configured default)'"`
	Patch bool `cli:"name=patch desc='input is a JSON patch or merge patch'"`

	Set *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Gops        bool   `cli:"name=gops desc='start the gops diagnostics agent'"`
	MetricsAddr string `cli:"name=metrics desc='serve prometheus metrics on this address'"`

	Serve *cli.Command
}

// env is what every command works on: the configuration, the demo scene
// and a reflector serving it.
type env struct {
	conf    *config.Config
	scene   *scene.Scene
	r       *reflector.Reflector
	metrics *metrics.Metrics
	log     *slog.Logger
}

// setup loads the configuration, applying adjust to it before anything is
// built from it.
func (cfg *MainConfig) setup(adjust ...func(*config.Config)) (*env, error) {
	conf := config.Default()
	if cfg.ConfigFile != "" {
		c, err := config.Load(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		conf = c
	}
	for _, f := range adjust {
		f(conf)
	}
	if cfg.Verbose {
		conf.Log.Level = "debug"
		debug.Set(true, true, true, true)
	}
	log := newLogger(conf, os.Stderr)
	sc, err := scene.New()
	if err != nil {
		return nil, fmt.Errorf("could not build scene: %w", err)
	}
	opts, err := sc.Options(conf.PolicyOptions()...)
	if err != nil {
		return nil, err
	}
	rOpts, m, err := conf.ReflectorOptions(log)
	if err != nil {
		return nil, err
	}
	r, err := reflector.New(append(opts, rOpts...)...)
	if err != nil {
		return nil, err
	}
	return &env{conf: conf, scene: sc, r: r, metrics: m, log: log}, nil
}

// colors reports whether output to w is colored: -color forces it,
// otherwise terminals get color.
func (cfg *MainConfig) colors(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func objbridgeMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}
