package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"
	"github.com/signadot/objbridge/config"
	"github.com/signadot/objbridge/rpc"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: serve takes no arguments", cli.ErrUsage)
	}
	e, err := cfg.setup(func(c *config.Config) {
		if cfg.MetricsAddr != "" {
			c.MetricsAddr = cfg.MetricsAddr
			c.Metrics.Enabled = true
		}
	})
	if err != nil {
		return err
	}

	// stdout carries the protocol
	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			fmt.Fprintf(os.Stderr, "gops agent failed: %v\n", err)
		}
		defer agent.Close()
	}
	if addr := e.conf.MetricsAddr; addr != "" && e.metrics != nil {
		go func() {
			if err := e.metrics.Serve(addr); err != nil {
				e.log.Error("metrics server stopped", "addr", addr, "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.log.Info("serving", "types", len(e.r.Registry().Types()))
	srv := rpc.New(e.r, rpc.WithLogger(e.log), rpc.WithRecursive(e.conf.Recursive))
	err = srv.Serve(ctx, &stdioReadWriteCloser{read: cc.In, write: cc.Out})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

type stdioReadWriteCloser struct {
	read  io.Reader
	write io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (n int, err error) {
	return s.read.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (n int, err error) {
	return s.write.Write(p)
}

func (s *stdioReadWriteCloser) Close() error {
	return nil
}
