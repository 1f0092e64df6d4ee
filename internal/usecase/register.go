package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"qrmatch/internal/domain"
	"qrmatch/internal/observability"
	"qrmatch/internal/port"
)

// RegisterUseCase stores text under an id together with its QR artifact and
// fingerprint.
type RegisterUseCase struct {
	embedder port.Embedder
	entries  port.EntryStore
	blobs    port.BlobStore
	renderer port.Renderer
	logger   *slog.Logger
	locks    *idLocks
	now      func() time.Time
}

// NewRegisterUseCase creates a new register use case.
func NewRegisterUseCase(
	embedder port.Embedder,
	entries port.EntryStore,
	blobs port.BlobStore,
	renderer port.Renderer,
	logger *slog.Logger,
) *RegisterUseCase {
	return &RegisterUseCase{
		embedder: embedder,
		entries:  entries,
		blobs:    blobs,
		renderer: renderer,
		logger:   logger,
		locks:    newIDLocks(),
		now:      time.Now,
	}
}

// Register stores text under id. Re-registering identical text is a no-op
// that rewrites the artifact and keeps the original entry; different text
// under a taken id fails with domain.ErrDuplicateID before anything is
// written.
//
// Registrations of the same id are serialized within the process, so the
// duplicate check, the artifact write and the row insert for one id never
// interleave. The artifact is written before the row, so a failure after the
// upload can leave an artifact without an entry. Both writes are keyed by id
// and a retry overwrites them.
func (u *RegisterUseCase) Register(ctx context.Context, id, text string) (entry *domain.Entry, err error) {
	ctx, span := observability.StartSpan(ctx, "register", attribute.String("entry.id", id))
	defer func() {
		observability.RecordError(span, err)
		span.End()
	}()

	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domain.ValidateText(text); err != nil {
		return nil, err
	}

	release, err := u.locks.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := u.entries.Get(ctx, id)
	switch {
	case err == nil:
		if existing.Text != text {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)
		}
		png, err := u.render(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := u.putArtifact(ctx, id, png); err != nil {
			return nil, err
		}
		u.logger.InfoContext(ctx, "entry already registered", "id", id)
		return &existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%w: lookup %s: %w", domain.ErrStoreUnavailable, id, err)
	}

	png, err := u.render(ctx, text)
	if err != nil {
		return nil, err
	}

	var fingerprint []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return u.putArtifact(gctx, id, png)
	})
	g.Go(func() error {
		fp, err := u.embed(gctx, text)
		if err != nil {
			return err
		}
		fingerprint = fp
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	newEntry := domain.Entry{
		ID:          id,
		Text:        text,
		Fingerprint: fingerprint,
		CreatedAt:   u.now().UTC(),
	}
	if err := u.entries.Insert(ctx, newEntry); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) || errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: insert %s: %w", domain.ErrStoreUnavailable, id, err)
	}

	u.logger.InfoContext(ctx, "entry registered",
		"id", id,
		"chars", len([]rune(text)),
		"dimension", len(fingerprint),
	)
	return &newEntry, nil
}

func (u *RegisterUseCase) render(ctx context.Context, text string) ([]byte, error) {
	_, span := observability.StartSpan(ctx, "register.render")
	defer span.End()

	png, err := u.renderer.Render(text)
	if err != nil {
		observability.RecordError(span, err)
		if errors.Is(err, domain.ErrRenderFailed) {
			return nil, &domain.ValidationError{Field: "text", Reason: "too long to encode as a QR code"}
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("artifact.bytes", len(png)))
	return png, nil
}

func (u *RegisterUseCase) putArtifact(ctx context.Context, id string, png []byte) error {
	ctx, span := observability.StartClientSpan(ctx, "register.put_artifact")
	defer span.End()

	if err := u.blobs.Put(ctx, id, png); err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("%w: put artifact %s: %w", domain.ErrStoreUnavailable, id, err)
	}
	return nil
}

func (u *RegisterUseCase) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := observability.StartClientSpan(ctx, "register.embed",
		attribute.String("embedding.model", u.embedder.ModelName()))
	defer span.End()

	vecs, err := u.embedder.Embed(ctx, []string{text})
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: provider returned %d vectors for 1 text", domain.ErrEmbeddingUnavailable, len(vecs))
	}
	if err := domain.ValidateFingerprint(vecs[0]); err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return vecs[0], nil
}
