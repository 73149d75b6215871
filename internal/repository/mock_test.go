package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var errDB = errors.New("connection reset")

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

// sqlPattern экранирует фрагмент запроса для регулярки pgxmock
func sqlPattern(fragment string) string {
	return regexp.QuoteMeta(fragment)
}
