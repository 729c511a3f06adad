// Package blob はキー/バリュー形式のブロブストアを提供する。
// カタログドキュメントとアラートドキュメントの置き場所であり、
// last-write-wins以外のトランザクション保証は持たない。
package blob

import (
	"context"
	"errors"
)

// ErrNotFound は指定キーのブロブが存在しない場合に返される。
var ErrNotFound = errors.New("blob: not found")

// Store はブロブストアのインターフェース。
type Store interface {
	// Get は指定キーの内容を取得する。存在しない場合はErrNotFoundを返す。
	Get(ctx context.Context, key string) ([]byte, error)

	// Put は指定キーへ内容を書き込む。既存キーは上書きされる（last-write-wins）。
	Put(ctx context.Context, key string, content []byte) error

	// List は指定プレフィックスに一致するキーの一覧をキー昇順で返す。
	List(ctx context.Context, prefix string) ([]string, error)
}
