package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"vocabtextdev/config"
	"vocabtextdev/conversation"
	"vocabtextdev/logger"
)

const createGenerationsTable = `
CREATE TABLE IF NOT EXISTS generations (
	id            BIGSERIAL PRIMARY KEY,
	telegram_user_id BIGINT NOT NULL,
	language      TEXT NOT NULL,
	level         TEXT NOT NULL,
	topic         TEXT NOT NULL,
	word_count    INTEGER NOT NULL,
	words_used    INTEGER NOT NULL,
	narrated      BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertGeneration = `
INSERT INTO generations (telegram_user_id, language, level, topic, word_count, words_used, narrated)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type DatabaseConnectProps struct {
	Logger *logger.LogMiddleware
	Config config.PostgresConfig
	// Retries defaults to 5, each attempt 5 seconds apart.
	Retries int
}

// Database keeps the generation history log.
type Database struct {
	logger *logger.LogMiddleware
	conn   *sql.DB
}

func Connect(ctx context.Context, args DatabaseConnectProps) (*Database, error) {
	tracer := otel.Tracer("postgres/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	connectRetries := args.Retries
	if connectRetries <= 0 {
		connectRetries = 5
	}
	var conn *sql.DB
	var err error

	logger := args.Logger.Logger(ctx)

	for connectRetries > 0 {
		conn, err = getConnection(ctx, args.Config)
		if err == nil {
			logger.Info("[Postgres] Database client started")
			break
		}
		connectRetries -= 1
		sleepTime := 5
		logger.Error(
			"[Postgres] Could not connect to Postgres. Retrying after sleeping.",
			zap.Error(err),
			zap.Int("Retries Left", connectRetries),
			zap.Int("Sleep Time", sleepTime),
			zap.String("Host", args.Config.Host))
		if connectRetries > 0 {
			time.Sleep(time.Second * time.Duration(sleepTime))
		}
	}

	if err != nil {
		logger.Error("[Postgres] Failed to Connect to Postgres")
		span.RecordError(err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if _, err := conn.ExecContext(ctx, createGenerationsTable); err != nil {
		span.RecordError(err)
		conn.Close()
		return nil, fmt.Errorf("could not create generations table: %w", err)
	}

	return &Database{logger: args.Logger, conn: conn}, nil
}

func dataSourceName(cfg config.PostgresConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		quote(cfg.Host), quote(cfg.Port), quote(cfg.User), quote(cfg.Password), quote(cfg.Name), "disable",
	)
}

// quote escapes a value for a key/value connection string.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func getConnection(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	tracer := otel.Tracer("postgres/getConnection")
	ctx, span := tracer.Start(ctx, "getConnection")
	defer span.End()

	connector, err := pq.NewConnector(dataSourceName(cfg))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		span.RecordError(err)
		db.Close()
		return nil, err
	}

	return db, nil
}

// RecordGeneration appends one delivered passage to the history log.
func (d *Database) RecordGeneration(ctx context.Context, rec conversation.GenerationRecord) error {
	tracer := otel.Tracer("postgres/RecordGeneration")
	ctx, span := tracer.Start(ctx, "RecordGeneration")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", rec.UserID), attribute.String("level", string(rec.Level)))

	_, err := d.conn.ExecContext(ctx, insertGeneration,
		rec.UserID,
		string(rec.Language),
		string(rec.Level),
		rec.Topic,
		rec.WordCount,
		rec.WordsUsed,
		rec.Narrated,
	)
	if err != nil {
		var pqErr *pq.Error
		code := ""
		if errors.As(err, &pqErr) {
			code = string(pqErr.Code)
		}
		d.logger.Logger(ctx).Error(
			"[Postgres] Could not record generation",
			zap.Error(err),
			zap.String("code", code),
			zap.Int64("telegram_user_id", rec.UserID),
		)
		span.RecordError(err)
		return fmt.Errorf("could not record generation: %w", err)
	}

	return nil
}

func (d *Database) Close() error {
	return d.conn.Close()
}
