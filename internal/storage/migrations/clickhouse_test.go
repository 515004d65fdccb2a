package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header
CREATE TABLE a (x String);

-- second
CREATE TABLE b (
    y String
);
`
	got := splitStatements(input)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (x String)", got[0])
	assert.Contains(t, got[1], "y String")
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b';"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := DatabaseFromDSN("clickhouse://default:@localhost:9000/audit")
	require.NoError(t, err)
	assert.Equal(t, "audit", db)

	_, err = DatabaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

type recordingExecer struct {
	stmts []string
	err   error
}

func (r *recordingExecer) Exec(_ context.Context, query string, _ ...any) error {
	r.stmts = append(r.stmts, query)
	return r.err
}

func TestRunClickhouseMigrations(t *testing.T) {
	exec := &recordingExecer{}
	require.NoError(t, RunClickhouseMigrations(context.Background(), exec))
	require.NotEmpty(t, exec.stmts)
	assert.Contains(t, exec.stmts[0], "CREATE TABLE IF NOT EXISTS audit_events")

	boom := errors.New("read only")
	err := RunClickhouseMigrations(context.Background(), &recordingExecer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestPostgresMigrationsEmbedded(t *testing.T) {
	data, err := PostgresFS.ReadFile("postgres/00001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "-- +goose Down")
}
