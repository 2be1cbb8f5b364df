package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/okian/hrdesk/internal/adapters/repository"
	"github.com/okian/hrdesk/internal/domain/model"
)

func TestPostgresCollection_Contract(t *testing.T) {
	dsn := os.Getenv("HRDESK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HRDESK_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	kind := model.Kind("test-employees-" + uuid.NewString())
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM hr_records WHERE collection = $1`, string(kind))
	})

	runCollectionContract(t, repository.NewPostgresCollection[model.Employee](db, kind))
}
