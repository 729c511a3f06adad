package blob

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore はインメモリのStore実装。
// テストとdry-runモードで使用する。スレッドセーフ。
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore はMemoryStoreの新しいインスタンスを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get は指定キーの内容を取得する。存在しない場合はErrNotFoundを返す。
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// Put は指定キーへ内容を書き込む。既存キーは上書きされる。
func (s *MemoryStore) Put(_ context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(content))
	copy(stored, content)
	s.blobs[key] = stored
	return nil
}

// List は指定プレフィックスに一致するキーの一覧をキー昇順で返す。
func (s *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
