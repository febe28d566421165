package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vocabtextdev/config"
	"vocabtextdev/conversation"
	"vocabtextdev/logger"
	"vocabtextdev/textutil"
)

func TestDataSourceNameQuotesValues(t *testing.T) {
	dsn := dataSourceName(config.PostgresConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "vocab",
		Password: `it's a \secret`,
		Name:     "history",
	})

	assert.Equal(t, `host='db.internal' port='5433' user='vocab' password='it\'s a \\secret' dbname='history' sslmode=disable`, dsn)
}

func TestRecordGenerationLive(t *testing.T) {
	if os.Getenv("POSTGRES_DB_HOST") == "" {
		t.Skip("POSTGRES_DB_HOST not set")
	}
	pg := config.PostgresConfig{
		Host:     os.Getenv("POSTGRES_DB_HOST"),
		Port:     "5432",
		User:     os.Getenv("POSTGRES_DB_USER"),
		Password: os.Getenv("POSTGRES_DB_PASS"),
		Name:     os.Getenv("POSTGRES_DB_NAME"),
	}
	if port := os.Getenv("POSTGRES_DB_PORT"); port != "" {
		pg.Port = port
	}

	ctx := context.Background()
	db, err := Connect(ctx, DatabaseConnectProps{Logger: logger.NewWithZap(zap.NewNop()), Config: pg, Retries: 1})
	require.NoError(t, err)
	defer db.Close()

	err = db.RecordGeneration(ctx, conversation.GenerationRecord{
		UserID:    42,
		Language:  textutil.Spanish,
		Level:     textutil.LevelB1,
		Topic:     "viajes",
		WordCount: 12,
		WordsUsed: 9,
		Narrated:  true,
	})
	assert.NoError(t, err)
}
