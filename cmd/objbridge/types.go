package main

import (
	"fmt"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/objbridge/policy"
)

func types(cfg *TypesConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Types.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: types takes no arguments", cli.ErrUsage)
	}
	e, err := cfg.setup()
	if err != nil {
		return err
	}
	reg := e.r.Registry()
	for _, name := range reg.Types() {
		fmt.Fprintln(cc.Out, name)
		if !cfg.Props {
			continue
		}
		t, _ := reg.LookupType(name)
		set, err := e.r.Members(t)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, f := range set.Fields {
			fmt.Fprintf(cc.Out, "  field %-12s %s%s\n", f.Name, reg.TypeName(f.Type), flags(f))
		}
		for _, p := range set.Props {
			fmt.Fprintf(cc.Out, "  prop  %-12s %s%s\n", p.Name, reg.TypeName(p.Type), flags(p))
		}
	}
	return nil
}

func flags(m *policy.MemberInfo) string {
	var fs []string
	if m.ReadOnly {
		fs = append(fs, "readonly")
	}
	if m.Deprecated {
		fs = append(fs, "deprecated")
	}
	if m.Optional {
		fs = append(fs, "optional")
	}
	if len(fs) == 0 {
		return ""
	}
	return " (" + strings.Join(fs, ",") + ")"
}
