// binja-mcp is the tool bridge: an MCP server on stdio that forwards every
// tool call to the operation server inside the analysis host.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zboralski/binja-mcp/internal/config"
	"github.com/zboralski/binja-mcp/internal/hostclient"
	"github.com/zboralski/binja-mcp/internal/server"
	"github.com/zboralski/binja-mcp/internal/session"
	"github.com/zboralski/binja-mcp/internal/worker"
)

var Version = server.Version

func main() {
	app := &cli.App{
		Name:    "binja-mcp",
		Usage:   "MCP bridge to a running binary analysis host",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Operation server host (default localhost)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Operation server port (default 9009)",
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "Operation server unix socket, instead of host:port",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout",
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "Wire codec: json or cbor",
			},
			&cli.StringFlag{
				Name:  "launch-host",
				Usage: "Start this binja-host binary on a private socket instead of attaching",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Snapshot for --launch-host",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Verbose logging",
			},
		},
		Action: run,
	}

	// stdout carries MCP; everything else goes to stderr
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
	if c.IsSet("timeout") {
		cfg.Bridge.Timeout = config.Duration{Duration: c.Duration("timeout")}
	}
	if c.IsSet("codec") {
		cfg.Codec = c.String("codec")
	}
	if c.IsSet("debug") {
		cfg.Bridge.Debug = c.Bool("debug")
	}
	if c.IsSet("snapshot") {
		cfg.Analysis.Snapshot = c.String("snapshot")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	launched := false
	if bin := c.String("launch-host"); bin != "" {
		if cfg.Analysis.Snapshot == "" {
			return errors.New("--launch-host needs --snapshot")
		}
		mgr := worker.NewManager(bin, nil, logger)
		dir := os.TempDir()
		mgr.CleanupOrphanSockets(dir)
		sock := worker.SocketPath(dir, strconv.Itoa(os.Getpid()))
		if err := mgr.Start(sock, cfg.Analysis.Snapshot, 10*time.Second); err != nil {
			return err
		}
		defer func() {
			if err := mgr.Stop(); err != nil {
				logger.Printf("[Worker] %v", err)
			}
		}()
		cfg.Socket = sock
		launched = true
	}

	sess, err := session.New(cfg.Address(), cfg.Bridge.Timeout.Duration, cfg.Bridge.DefaultLimit, cfg.Bridge.MaxLimit)
	if err != nil {
		return err
	}
	client, err := hostclient.Dial(hostclient.Config{
		Address: sess.Endpoint,
		Timeout: sess.Timeout,
		Codec:   cfg.Codec,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if launched {
		if err := client.WaitReady(ctx, 5*time.Second); err != nil {
			return err
		}
	} else {
		// The host may come up later; a failed ping is only a hint.
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		if pong, err := client.Ping(pingCtx); err != nil {
			logger.Printf("[Bridge] operation server at %s not answering yet: %v", sess.Endpoint, err)
		} else {
			logger.Printf("[Bridge] operation server %s at %s, binary loaded: %t", pong.Version, sess.Endpoint, pong.Loaded)
		}
		cancel()
	}

	srv, err := server.New(sess, client, logger, cfg.Bridge.Debug)
	if err != nil {
		return err
	}
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
