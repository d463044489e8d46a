// binja-host is a stand-in analysis host: it loads a program snapshot into
// memory and serves it through the embedded operation server, the same way a
// plugin inside the real disassembler would.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zboralski/binja-mcp/internal/config"
	"github.com/zboralski/binja-mcp/internal/hostexec"
	"github.com/zboralski/binja-mcp/internal/model"
	"github.com/zboralski/binja-mcp/internal/opserver"
)

var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "binja-host",
		Usage:   "Serve a program snapshot through the operation server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Aliases: []string{"s"},
				Usage:   "Program snapshot to load (.yaml, .json or .jsonc)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port",
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "Listen on a unix socket instead of host:port",
			},
			&cli.DurationFlag{
				Name:  "analysis-delay",
				Usage: "Report analysis as running for this long after load",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Verbose logging",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatalf("[Error] %v", err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.IsSet("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("socket") {
		cfg.Socket = c.String("socket")
	}
	if c.IsSet("snapshot") {
		cfg.Analysis.Snapshot = c.String("snapshot")
	}
	if c.IsSet("analysis-delay") {
		cfg.Analysis.Delay = config.Duration{Duration: c.Duration("analysis-delay")}
	}
	if c.IsSet("debug") {
		cfg.Bridge.Debug = c.Bool("debug")
	}
	if cfg.Analysis.Snapshot == "" {
		return nil, errors.New("no snapshot: pass --snapshot or set analysis.snapshot")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	prog, err := model.LoadSnapshot(cfg.Analysis.Snapshot)
	if err != nil {
		return err
	}
	delay := cfg.Analysis.Delay.Duration
	if delay > 0 {
		prog.AnalysisComplete = false
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := hostexec.NewQueue(64, logger)
	defer queue.Close()

	host := model.NewHost()
	if err := loadProgram(ctx, queue, host, prog, logger); err != nil {
		return err
	}

	srv, err := opserver.New(host, queue, logger, opserver.Options{
		DefaultLimit: cfg.Bridge.DefaultLimit,
		MaxLimit:     cfg.Bridge.MaxLimit,
		Debug:        cfg.Bridge.Debug,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(cfg.Address()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if delay > 0 {
		g.Go(func() error {
			return finishAnalysis(gctx, queue, prog, delay, logger)
		})
	}
	g.Go(func() error {
		return reloadOnHangup(gctx, queue, host, cfg.Analysis.Snapshot, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Printf("[Host] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}

// loadProgram installs prog as the current binary on the host thread.
func loadProgram(ctx context.Context, queue *hostexec.Queue, host *model.Host, prog *model.Program, logger *log.Logger) error {
	var functions int
	err := queue.Do(ctx, func() {
		host.Load(prog)
		functions = len(prog.Functions())
	})
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	logger.Printf("[Host] loaded %s: %d functions", prog.Filename, functions)
	return nil
}

// reloadSnapshot reads path again and replaces the loaded binary. A snapshot
// that fails to parse leaves the current one in place.
func reloadSnapshot(ctx context.Context, queue *hostexec.Queue, host *model.Host, path string, logger *log.Logger) error {
	prog, err := model.LoadSnapshot(path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", path, err)
	}
	return loadProgram(ctx, queue, host, prog, logger)
}

// reloadOnHangup reloads the snapshot every time the process gets SIGHUP.
func reloadOnHangup(ctx context.Context, queue *hostexec.Queue, host *model.Host, path string, logger *log.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := reloadSnapshot(ctx, queue, host, path, logger); err != nil {
				logger.Printf("[Error] %v", err)
			}
		}
	}
}

// finishAnalysis marks analysis complete after delay, on the host thread.
func finishAnalysis(ctx context.Context, queue *hostexec.Queue, prog *model.Program, delay time.Duration, logger *log.Logger) error {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-t.C:
	}
	if err := queue.Go(func() { prog.AnalysisComplete = true }); err != nil {
		return err
	}
	logger.Printf("[Host] analysis complete")
	return nil
}
