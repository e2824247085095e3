// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// audit_cmd.go - Reads the upstream attempt log.
//
// Command: audit [--limit N]
//
// Examples:
//
//	bookbot audit
//	bookbot audit --limit 50 --json
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/bookbot/internal/audit"
	"github.com/jeranaias/bookbot/internal/util"
)

// HandleAudit prints the most recent attempts, newest first.
func HandleAudit(ctx context.Context, env *Env) error {
	path, err := env.Config.AuditPath()
	if err != nil {
		return NewCommandError("audit", "locate log", err)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return NewCommandError("audit", "open log",
				fmt.Errorf("no audit log at %s (enable [audit] in config or set BOOKBOT_AUDIT=1 for serve)", path))
		}
		return NewCommandError("audit", "open log", err)
	}

	l, err := audit.Open(path)
	if err != nil {
		return NewCommandError("audit", "open log", err)
	}
	defer l.Close()

	return runAudit(ctx, env, l)
}

func runAudit(ctx context.Context, env *Env, l *audit.Log) error {
	entries, err := l.Recent(ctx, env.Args.Limit)
	if err != nil {
		return NewCommandError("audit", "query", err)
	}

	if env.Args.JSON {
		rows := make([]AuditRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, AuditRow{
				RequestID: e.RequestID,
				Model:     e.Model,
				Version:   e.Version,
				Status:    e.Status,
				Outcome:   string(e.Outcome),
				Error:     e.Error,
				LatencyMS: e.Latency.Milliseconds(),
				CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return NewJSONResponse("audit", rows).Write(env.Stdout)
	}

	w := env.Stdout
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No attempts recorded."))
		return nil
	}

	fmt.Fprintf(w, "%-19s  %-8s  %-26s  %-7s  %-6s  %-9s  %s\n",
		"TIME", "REQUEST", "MODEL", "VERSION", "STATUS", "OUTCOME", "LATENCY")
	for _, e := range entries {
		fmt.Fprintf(w, "%-19s  %-8s  %-26s  %-7s  %-6d  %-9s  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			util.TruncateRunes(e.RequestID, 8),
			util.TruncateWidth(e.Model, 26),
			e.Version,
			e.Status,
			e.Outcome,
			e.Latency.Round(time.Millisecond),
		)
		if e.Error != "" && env.Args.Verbose {
			fmt.Fprintln(w, "    "+ErrorStyle.Render(e.Error))
		}
	}
	return nil
}
