package postgres

import (
	"context"
	"database/sql"

	"stagelink/internal/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	roles TEXT[] NOT NULL DEFAULT '{}',
	profile JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS resources (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	state INT NOT NULL,
	owner_id UUID,
	company_id UUID,
	employment_id UUID,
	attrs JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resources_kind_state ON resources (kind, state);
CREATE INDEX IF NOT EXISTS idx_resources_owner ON resources (kind, owner_id);
CREATE INDEX IF NOT EXISTS idx_resources_company ON resources (kind, company_id);
CREATE INDEX IF NOT EXISTS idx_resources_employment ON resources (kind, employment_id);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	recipient_user_id UUID NOT NULL,
	recipient_role TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	data JSONB NOT NULL DEFAULT '{}',
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS shares (
	id UUID PRIMARY KEY,
	share_type TEXT NOT NULL,
	target_id UUID NOT NULL,
	token TEXT NOT NULL UNIQUE,
	created_by UUID NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	expires_at TIMESTAMPTZ,
	disabled_at TIMESTAMPTZ,
	clicks INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shares_creator ON shares (created_by, created_at DESC);
`

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return common.NewError(common.CodeInternal, "failed to apply schema", err)
	}
	return nil
}
