package blob

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore はPostgreSQLをバックエンドとするStoreの実装。
// 1ドキュメント=1行で保持し、Putは常に行全体を置き換える。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreの新しいインスタンスを生成する。
// blobsテーブルはマイグレーション（internal/database）で作成される。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get は指定キーの内容を取得する。存在しない場合はErrNotFoundを返す。
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM blobs WHERE key = $1`, key,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob %q: %w", key, err)
	}
	return content, nil
}

// Put は指定キーへ内容を書き込む。既存キーは上書きされる。
func (s *PostgresStore) Put(ctx context.Context, key string, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, content, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET content = $2, updated_at = $3`,
		key, content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put blob %q: %w", key, err)
	}
	return nil
}

// List は指定プレフィックスに一致するキーの一覧をキー昇順で返す。
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM blobs WHERE key LIKE $1 || '%' ORDER BY key`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs with prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan blob key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
