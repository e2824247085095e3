// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Runs the chat proxy.
//
// Command: serve [--addr HOST:PORT]
//
// The proxy starts without GEMINI_API_KEY and answers /api/chat with 500
// until restarted with a key. Config file edits to model lists and versions
// apply without a restart.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/bookbot/internal/audit"
	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/gemini"
	"github.com/jeranaias/bookbot/internal/resolver"
	"github.com/jeranaias/bookbot/internal/server"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// HandleServe runs the proxy until ctx is cancelled.
func HandleServe(ctx context.Context, env *Env) error {
	srv, closeFn, err := buildServer(env)
	if err != nil {
		return err
	}
	defer closeFn()

	if w := startConfigWatcher(ctx, env, srv.Resolver()); w != nil {
		defer w.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if !env.Args.Quiet {
		fmt.Fprintln(env.Stderr, SuccessStyle.Render("BookBot proxy listening on http://"+srv.Addr()))
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return NewCommandError("serve", "listen", err)
	case <-ctx.Done():
	}

	log.Printf("SERVER_SHUTDOWN | reason=%v", context.Cause(ctx))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return NewCommandError("serve", "shutdown", err)
	}
	return nil
}

// buildServer wires the upstream client, resolver, optional audit log and
// HTTP server from env. The returned func releases what was opened.
func buildServer(env *Env) (*server.Server, func(), error) {
	cfg := env.Config
	verbose := env.Args.Verbose

	upstream := gemini.NewClient(cfg.Gemini.APIKey).
		WithBaseURL(cfg.Gemini.BaseURL).
		WithVerbose(verbose)

	res := resolver.New(upstream, resolver.SettingsFromConfig(cfg)).WithVerbose(verbose)

	closeFn := func() {}
	if cfg.Audit.Enabled {
		path, err := cfg.AuditPath()
		if err != nil {
			return nil, nil, NewCommandError("serve", "locate audit log", err)
		}
		auditLog, err := audit.Open(path)
		if err != nil {
			return nil, nil, NewCommandError("serve", "open audit log", err)
		}
		res = res.WithObserver(auditLog.Observer())
		closeFn = func() {
			if err := auditLog.Close(); err != nil {
				log.Printf("AUDIT_CLOSE_FAILED | error=%v", err)
			}
		}
		log.Printf("AUDIT_ENABLED | path=%s", path)
	}

	if !cfg.HasAPIKey() {
		fmt.Fprintln(env.Stderr, WarningStyle.Render("Warning: GEMINI_API_KEY is not set; chat requests will fail until it is."))
	} else if verbose {
		log.Printf("GEMINI_KEY | fingerprint=%s", upstream.KeyFingerprint())
	}

	srv := server.New(cfg, res).
		WithVersion(Version).
		WithVerbose(verbose).
		WithAddr(env.Args.Addr)
	return srv, closeFn, nil
}

// startConfigWatcher reloads resolver settings when the config file changes.
// It returns nil when there is nothing to watch.
func startConfigWatcher(ctx context.Context, env *Env, res *resolver.Resolver) *config.Watcher {
	path := env.Args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, func(cfg *config.Config) {
		res.UpdateSettings(resolver.SettingsFromConfig(cfg))
	})
	if err != nil {
		log.Printf("CONFIG_WATCH_FAILED | path=%s error=%v", path, err)
		return nil
	}
	go w.Run(ctx)
	return w
}
