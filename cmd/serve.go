package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/mdx/internal/blobstore"
	"github.com/desertthunder/mdx/internal/server"
	"github.com/desertthunder/mdx/internal/session"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverConfig := r.config.Server
	if addr := cmd.String("addr"); addr != "" {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", addr, err)
		}
		if serverConfig.Port, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid --addr port %q: %w", port, err)
		}
		serverConfig.Host = host
	}

	blobs, err := blobstore.New(ctx, r.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	sessions, closeSessions, err := session.New(ctx, r.config.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer closeSessions()

	if r.config.Session.Secret == "" && r.config.Session.Backend == "cookie" {
		r.logger.Warn("session.secret is empty; sessions will not survive a restart")
	}

	a, err := r.openApp(ctx, blobs)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Deps{
		Identity:  a.identity,
		Playlists: a.playlists,
		Access:    a.access,
		Extractor: r.gateway(),
		Blobs:     blobs,
		Sessions:  sessions,
		Logger:    r.logger,
	}, serverConfig)

	r.logger.Info("starting mdx",
		"addr", serverConfig.Addr(),
		"database", r.config.Database.Path,
		"storage", blobs.Name(),
		"sessions", r.config.Session.Backend,
	)
	return srv.ListenAndServe(ctx)
}
