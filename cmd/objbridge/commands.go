package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "objbridge").
		WithSynopsis("objbridge [opts] command [opts]").
		WithDescription("objbridge inspects and edits live objects of a demo scene through the reflection bridge.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return objbridgeMain(cfg, cc, args)
		}).
		WithSubs(
			TypesCommand(cfg),
			SchemaCommand(cfg),
			GetCommand(cfg),
			SetCommand(cfg),
			ServeCommand(cfg))
}

func TypesCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &TypesConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Types, "types").
		WithAliases("t").
		WithSynopsis("types [-p]").
		WithDescription("list registered type ids").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return types(cfg, cc, args)
		})
}

func SchemaCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SchemaConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Schema, "schema").
		WithAliases("s").
		WithSynopsis("schema [-y] <type> | schema -all").
		WithDescription("print the JSON Schema of a registered type").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return schemaCmd(cfg, cc, args)
		})
}

func GetCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &GetConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Get, "get").
		WithAliases("g").
		WithSynopsis("get [-depth n] [-r] [-y] [-plain] <ref> [path]").
		WithDescription(getDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return get(cfg, cc, args)
		})
}

const getDescription = `get serializes a scene object.

A ref is one of

  World/Player        hierarchy path
  #3                  instance id
  guid:<guid>         content GUID
  asset:<path>        content path

An optional member path such as 'transform.position' or 'components[1]'
selects part of the result.`

func SetCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SetConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Set, "set").
		WithSynopsis("set [-depth n] [-patch] <ref> [member-file|-]").
		WithDescription(setDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return set(cfg, cc, args)
		})
}

const setDescription = `set populates a scene object from a partial member.

The member is read as YAML or JSON from the file argument or stdin.  With
-patch the input is instead a JSON patch or merge patch applied to the
object's current member.

Diagnostics and a diff of the object before and after are printed.  set
exits with status 1 when any member could not be applied.`

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-gops] [-metrics addr]").
		WithDescription("serve the bridge over JSON-RPC 2.0 on stdin and stdout").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}
