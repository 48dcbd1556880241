//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// application schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

const schema = `
CREATE TABLE IF NOT EXISTS sections (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	city         TEXT NOT NULL DEFAULT '',
	region       TEXT NOT NULL DEFAULT '',
	member_count INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
	uid                     TEXT PRIMARY KEY,
	email                   TEXT NOT NULL UNIQUE,
	first_name              TEXT NOT NULL DEFAULT '',
	last_name               TEXT NOT NULL DEFAULT '',
	phone                   TEXT NOT NULL DEFAULT '',
	section_id              UUID REFERENCES sections (id),
	role                    TEXT NOT NULL DEFAULT '',
	status                  TEXT NOT NULL,
	email_verified          BOOLEAN NOT NULL DEFAULT FALSE,
	contribution_up_to_date BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at               TIMESTAMPTZ,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contribution_policies (
	id                UUID PRIMARY KEY,
	name              TEXT NOT NULL,
	amount            DOUBLE PRECISION NOT NULL,
	currency          TEXT NOT NULL,
	periodicity       TEXT NOT NULL,
	grace_period_days INTEGER NOT NULL DEFAULT 0,
	is_active         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_records (
	id           UUID PRIMARY KEY,
	member_uid   TEXT NOT NULL REFERENCES members (uid),
	policy_id    UUID NOT NULL REFERENCES contribution_policies (id),
	amount       DOUBLE PRECISION NOT NULL,
	currency     TEXT NOT NULL,
	period_start TIMESTAMPTZ NOT NULL,
	period_end   TIMESTAMPTZ NOT NULL,
	reference    TEXT NOT NULL DEFAULT '',
	note         TEXT NOT NULL DEFAULT '',
	recorded_by  TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conditions (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL,
	validity_days INTEGER,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS member_conditions (
	member_uid   TEXT NOT NULL REFERENCES members (uid),
	condition_id UUID NOT NULL REFERENCES conditions (id),
	validated    BOOLEAN NOT NULL,
	validated_by TEXT NOT NULL,
	validated_at TIMESTAMPTZ NOT NULL,
	expires_at   TIMESTAMPTZ,
	note         TEXT NOT NULL DEFAULT '',
	evidence     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (member_uid, condition_id)
);

CREATE TABLE IF NOT EXISTS elections (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	min_seniority_days  INTEGER NOT NULL DEFAULT 0,
	allowed_section_ids TEXT[] NOT NULL DEFAULT '{}',
	voter_condition_ids TEXT[] NOT NULL DEFAULT '{}',
	starts_at           TIMESTAMPTZ NOT NULL,
	ends_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          UUID PRIMARY KEY,
	action      TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	actor_role  TEXT NOT NULL DEFAULT '',
	target_type TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	details     JSONB,
	request_id  TEXT NOT NULL DEFAULT '',
	client_ip   TEXT NOT NULL DEFAULT '',
	user_agent  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
`

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("amicale_test"),
		tcpostgres.WithUsername("amicale"),
		tcpostgres.WithPassword("amicale"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}
}

// TruncateTables clears the named tables. Use between tests for isolation;
// CASCADE follows foreign keys so callers only name the tables they touched.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	return err
}
