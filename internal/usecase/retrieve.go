package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"qrmatch/internal/domain"
	"qrmatch/internal/observability"
	"qrmatch/internal/port"
)

// RetrieveUseCase answers a prompt with the single best registered entry.
type RetrieveUseCase struct {
	embedder    port.Embedder
	entries     port.EntryStore
	blobs       port.BlobStore
	matcher     port.Matcher
	threshold   float64
	contentType string
	logger      *slog.Logger
}

// NewRetrieveUseCase creates a new retrieve use case. contentType labels the
// artifacts held in blobs.
func NewRetrieveUseCase(
	embedder port.Embedder,
	entries port.EntryStore,
	blobs port.BlobStore,
	matcher port.Matcher,
	threshold float64,
	contentType string,
	logger *slog.Logger,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		embedder:    embedder,
		entries:     entries,
		blobs:       blobs,
		matcher:     matcher,
		threshold:   threshold,
		contentType: contentType,
		logger:      logger,
	}
}

func (u *RetrieveUseCase) Threshold() float64 {
	return u.threshold
}

// Retrieve returns the entry most similar to prompt, or nil when nothing
// reaches the threshold. A matched entry whose artifact is gone yields
// domain.ErrArtifactMissing.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, prompt string) (result *domain.MatchResult, err error) {
	ctx, span := observability.StartSpan(ctx, "retrieve",
		attribute.Float64("match.threshold", u.threshold))
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	if err := domain.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	query, err := u.embedQuery(ctx, prompt)
	if err != nil {
		return nil, err
	}

	entries, err := u.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, len(entries))
	byID := make(map[string]domain.Entry, len(entries))
	for i, e := range entries {
		candidates[i] = e.Candidate()
		byID[e.ID] = e
	}

	_, selectSpan := observability.StartSpan(ctx, "retrieve.select",
		attribute.Int("match.candidates", len(candidates)))
	sel, err := u.matcher.SelectBest(query, candidates, u.threshold)
	observability.RecordError(selectSpan, err)
	selectSpan.End()
	if err != nil {
		return nil, fmt.Errorf("select best match: %w", err)
	}
	observability.RecordSelection(span, sel.Outcome.String(), sel.ID, sel.Score, sel.Scanned)

	if !sel.Accepted() {
		u.logger.InfoContext(ctx, "no match",
			"outcome", sel.Outcome.String(),
			"best_id", sel.ID,
			"score", sel.Score,
			"threshold", u.threshold,
			"scanned", sel.Scanned,
		)
		return nil, nil
	}

	artifact, err := u.resolveArtifact(ctx, sel.ID)
	if err != nil {
		return nil, err
	}

	entry := byID[sel.ID]
	u.logger.InfoContext(ctx, "match",
		"id", entry.ID,
		"score", sel.Score,
		"scanned", sel.Scanned,
	)

	return &domain.MatchResult{
		ID:           entry.ID,
		Text:         entry.Text,
		CreatedAt:    entry.CreatedAt,
		Score:        sel.Score,
		Artifact:     artifact,
		ArtifactType: u.contentType,
	}, nil
}

func (u *RetrieveUseCase) embedQuery(ctx context.Context, prompt string) ([]float32, error) {
	ctx, span := observability.StartClientSpan(ctx, "retrieve.embed",
		attribute.String("embedding.model", u.embedder.ModelName()))
	defer span.End()

	vecs, err := u.embedder.Embed(ctx, []string{prompt})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != 1 {
		err := fmt.Errorf("%w: provider returned %d vectors for 1 prompt", domain.ErrEmbeddingUnavailable, len(vecs))
		observability.RecordError(span, err)
		return nil, err
	}
	return vecs[0], nil
}

func (u *RetrieveUseCase) loadCandidates(ctx context.Context) ([]domain.Entry, error) {
	ctx, span := observability.StartClientSpan(ctx, "retrieve.load")
	defer span.End()

	entries, err := u.entries.ListAll(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("%w: list entries: %w", domain.ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Int("store.entries", len(entries)))
	return entries, nil
}

func (u *RetrieveUseCase) resolveArtifact(ctx context.Context, id string) ([]byte, error) {
	ctx, span := observability.StartClientSpan(ctx, "retrieve.artifact",
		attribute.String("entry.id", id))
	defer span.End()

	data, ok, err := u.blobs.Get(ctx, id)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("%w: get artifact %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrArtifactMissing, id)
		observability.RecordError(span, err)
		u.logger.ErrorContext(ctx, "matched entry has no artifact", "id", id)
		return nil, err
	}
	return data, nil
}
