// Package source はリテーラーごとのセール情報取得を抽象化する。
// 各リテーラーはSourceインターフェースの実装1つとして分離され、
// 正規化・マージ・マッチングのコアに触れずに個別に差し替えられる。
package source

import (
	"context"
	"sort"

	"github.com/hitoshi/dealman/internal/model"
	"github.com/hitoshi/dealman/internal/normalize"
)

// Source は1リテーラー分の生レコード取得能力を表す。
type Source interface {
	// Name はソースの識別名（ストア名と同一）を返す。
	Name() string

	// Context はこのソースの正規化ルールを返す。
	Context() normalize.SourceContext

	// Fetch はソースから生レコードの一覧を取得する。
	// ネットワーク障害やパース不能はエラーとして返し、
	// 呼び出し元がソース障害として統計に記録する。
	Fetch(ctx context.Context) ([]model.RawRecord, error)
}

// Registry は登録済みソースの集合を保持する。
// 有効/無効の切り替えはプロセス全体の可変状態ではなく、
// 実行ごとにEnabledへ渡される集合で決まる。
type Registry struct {
	sources []Source
}

// NewRegistry はRegistryの新しいインスタンスを生成する。
// ソースの登録順はマージの安定ソートのタイブレーク順として保存される。
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// All は登録済みソースを登録順で返す。
func (r *Registry) All() []Source {
	return r.sources
}

// Enabled は有効化されたソースのみを登録順で返す。
// enabledが空の場合は全ソースを返す。
func (r *Registry) Enabled(enabled map[string]bool) []Source {
	if len(enabled) == 0 {
		return r.sources
	}
	var out []Source
	for _, s := range r.sources {
		if enabled[s.Name()] {
			out = append(out, s)
		}
	}
	return out
}

// Names は登録済みソース名の一覧を辞書順で返す。ログと診断用。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}
