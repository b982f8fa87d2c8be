package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE AUDIT JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS admin_audit_log (
    id UUID PRIMARY KEY,
    event_type VARCHAR(64) NOT NULL,
    aggregate_id VARCHAR(128) NOT NULL,
    actor VARCHAR(32) NOT NULL DEFAULT '',
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    payload JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_admin_audit_log_occurred_at ON admin_audit_log(occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_admin_audit_log_aggregate ON admin_audit_log(aggregate_id, occurred_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS admin_audit_log;
`

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_admin_audit_log",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
	}
}
