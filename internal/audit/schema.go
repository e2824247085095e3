// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema creates the attempts table.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    model TEXT NOT NULL,
    version TEXT NOT NULL,
    status INTEGER NOT NULL,    -- 0 for transport failures
    outcome TEXT NOT NULL,      -- success, not_found, empty, failure
    error TEXT,
    latency_ms INTEGER NOT NULL,
    created_at INTEGER NOT NULL -- Unix milliseconds
);

CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_request ON attempts(request_id);
`

// InitMetadata seeds the metadata table.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
