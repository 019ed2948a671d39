package main

import (
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"
	"github.com/signadot/objbridge/wire"
)

func set(cfg *SetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Set.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: expected <ref> [member-file|-]", cli.ErrUsage)
	}
	in, err := readInput(cc, args[1:])
	if err != nil {
		return err
	}
	e, err := cfg.setup()
	if err != nil {
		return err
	}
	obj, _, err := e.scene.Find(e.r, args[0])
	if err != nil {
		return err
	}
	before, _, err := e.r.Serialize(obj, cfg.Depth, false)
	if err != nil {
		return err
	}
	var m *wire.Member
	if cfg.Patch {
		m, err = wire.ApplyPatch(before, in)
	} else {
		m, err = wire.FromYAML(in)
	}
	if err != nil {
		return fmt.Errorf("could not read member: %w", err)
	}
	ok, log, err := e.r.Populate(obj, m, cfg.Depth)
	if err != nil {
		return err
	}
	after, _, err := e.r.Serialize(obj, cfg.Depth, false)
	if err != nil {
		return err
	}
	writeDiagnostics(os.Stderr, newColors(cfg.colors(os.Stderr)), log.Entries())
	if wire.Equal(before, after) {
		e.log.Info("no change", "ref", args[0])
	} else if err := writeMemberDiff(cc.Out, newColors(cfg.colors(cc.Out)), before, after); err != nil {
		return err
	}
	if !ok {
		return cli.ExitCodeErr(1)
	}
	return nil
}

func readInput(cc *cli.Context, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cc.In)
	}
	return os.ReadFile(args[0])
}

// writeMemberDiff writes a line diff of the plain projections of before
// and after.
func writeMemberDiff(w io.Writer, c *colors, before, after *wire.Member) error {
	from, err := wire.PlainYAML(before)
	if err != nil {
		return err
	}
	to, err := wire.PlainYAML(after)
	if err != nil {
		return err
	}
	writeDiff(w, c, string(from), string(to))
	return nil
}
