package main

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	"github.com/scott-cotton/cli"
)

func schemaCmd(cfg *SchemaConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Schema.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.All == (len(args) == 1) || len(args) > 1 {
		return fmt.Errorf("%w: give one type or -all", cli.ErrUsage)
	}
	e, err := cfg.setup()
	if err != nil {
		return err
	}
	reg := e.r.Registry()
	var s *jsonschema.Schema
	if cfg.All {
		var ts []reflect.Type
		for _, name := range reg.Types() {
			t, _ := reg.LookupType(name)
			ts = append(ts, t)
		}
		s, err = e.r.Schemas().Document(ts...)
	} else {
		t, ok := reg.LookupType(args[0])
		if !ok {
			return fmt.Errorf("unknown type %q", args[0])
		}
		s, err = e.r.SchemaFor(t)
	}
	if err != nil {
		return err
	}
	d, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if cfg.Y {
		if d, err = yaml.JSONToYAML(d); err != nil {
			return err
		}
	} else {
		d = append(d, '\n')
	}
	_, err = cc.Out.Write(d)
	return err
}
