package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/rs/zerolog/log"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "20260101000000-create-kv-store",
			Up: []string{`
				CREATE TABLE IF NOT EXISTS kv_store (
					key        TEXT PRIMARY KEY,
					value      BYTEA NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)`,
			},
			Down: []string{`DROP TABLE IF EXISTS kv_store`},
		},
	},
}

// PostgreSQLStore 基于 PostgreSQL 的键值存储
type PostgreSQLStore struct {
	db *sql.DB
}

// NewPostgreSQLStore 打开连接并执行迁移
func NewPostgreSQLStore(ctx context.Context, dsn string) (*PostgreSQLStore, error) {
	db, err := OpenPostgreSQL(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if _, err := Migrate(db, migrate.Up); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgreSQLStore{db: db}, nil
}

// OpenPostgreSQL 打开连接并确认可达
func OpenPostgreSQL(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("storage postgres_dsn is not configured")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}
	return db, nil
}

// Migrate 按方向执行 kv_store 迁移，返回应用的迁移数
func Migrate(db *sql.DB, dir migrate.MigrationDirection) (int, error) {
	n, err := migrate.Exec(db, "postgres", migrations, dir)
	if err != nil {
		return 0, errors.Wrap(err, "failed to apply migrations")
	}
	log.Debug().Int("applied", n).Msg("Applied kv_store migrations")
	return n, nil
}

// Get 读取值
func (s *PostgreSQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`
	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to get key %s", key)
	}
	return value, nil
}

// Put 整值替换
func (s *PostgreSQLStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return errors.Wrapf(err, "failed to put key %s", key)
	}
	return nil
}

// Delete 删除键
func (s *PostgreSQLStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`
	_, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return errors.Wrapf(err, "failed to delete key %s", key)
	}
	return nil
}

func (s *PostgreSQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}
