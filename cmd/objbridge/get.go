package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

func get(cfg *GetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Get.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: expected <ref> [path]", cli.ErrUsage)
	}
	e, err := cfg.setup()
	if err != nil {
		return err
	}
	obj, _, err := e.scene.Find(e.r, args[0])
	if err != nil {
		return err
	}
	m, log, err := e.r.Serialize(obj, cfg.Depth, cfg.Recursive || e.conf.Recursive)
	if err != nil {
		return err
	}
	writeDiagnostics(os.Stderr, newColors(cfg.colors(os.Stderr)), log.Entries())
	if len(args) == 2 {
		if m, err = m.Find(args[1]); err != nil {
			return err
		}
	}
	return render(cc.Out, m, cfg.Y, cfg.Plain)
}
