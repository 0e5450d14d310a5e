package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/repository"
)

func TestTranslate(t *testing.T) {
	require.NoError(t, translate(nil))
	require.ErrorIs(t, translate(pgx.ErrNoRows), repository.ErrNotFound)
	require.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)
	require.ErrorIs(t, translate(&pgconn.PgError{Code: "23503"}), repository.ErrNotFound)
	require.ErrorIs(t, translate(&pgconn.PgError{Code: "23514", Message: "check"}), repository.ErrInvalidArgument)
	require.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}), repository.ErrInvalidArgument)

	other := errors.New("boom")
	require.Equal(t, other, translate(other))
}

func TestDistinctNames(t *testing.T) {
	require.Equal(t, []string{"api", "web"}, distinctNames([]string{"web", " api ", "", "web", "api"}))
	require.Empty(t, distinctNames(nil))
}

func TestNilHelpers(t *testing.T) {
	require.Nil(t, nilTime(time.Time{}))
	require.Nil(t, timePtrToNil(nil))
	require.Nil(t, intPtrToNil(nil))
	require.Nil(t, stringPtrToNil(nil))
	require.Equal(t, 7, limitOrDefault(0, 7))
	require.Equal(t, 3, limitOrDefault(3, 7))
	require.NotNil(t, stringTags(nil))
	require.NotNil(t, anyMap(nil))
}
