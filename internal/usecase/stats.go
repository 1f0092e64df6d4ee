package usecase

import (
	"context"
	"fmt"

	"qrmatch/internal/domain"
	"qrmatch/internal/port"
)

// Stats summarizes a store for the stats command and health checks.
type Stats struct {
	Entries   int               `json:"entries"`
	Model     string            `json:"model"`
	Dimension int               `json:"dimension"`
	Schema    domain.SchemaInfo `json:"schema"`
}

type StatsUseCase struct {
	entries  port.EntryStore
	embedder port.Embedder
}

func NewStatsUseCase(entries port.EntryStore, embedder port.Embedder) *StatsUseCase {
	return &StatsUseCase{entries: entries, embedder: embedder}
}

func (u *StatsUseCase) Stats(ctx context.Context) (*Stats, error) {
	n, err := u.entries.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count entries: %w", domain.ErrStoreUnavailable, err)
	}

	stats := &Stats{
		Entries:   n,
		Model:     u.embedder.ModelName(),
		Dimension: u.embedder.Dimension(),
	}

	if ss, ok := u.entries.(port.SchemaStore); ok {
		info, err := ss.Schema(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: read schema: %w", domain.ErrStoreUnavailable, err)
		}
		stats.Schema = info
	}
	return stats, nil
}
