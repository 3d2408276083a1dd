package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("get user: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(fmt.Errorf("other")))

	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(pgx.ErrNoRows))

	assert.Equal(t, "promoters_user_id_key",
		ViolatedConstraint(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "promoters_user_id_key"})))
	assert.Empty(t, ViolatedConstraint(&pgconn.PgError{Code: "23503", ConstraintName: "events_venue_id_fkey"}))

	assert.True(t, IsForeignKeyViolation(fmt.Errorf("assign: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(dup))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	assert.NoError(t, err)
	assert.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])
}
