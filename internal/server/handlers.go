package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"qrmatch/internal/domain"
	"qrmatch/internal/usecase"
)

type Handlers struct {
	register     *usecase.RegisterUseCase
	retrieve     *usecase.RetrieveUseCase
	stats        *usecase.StatsUseCase
	logger       *slog.Logger
	maxBodyBytes int64
}

func NewHandlers(
	register *usecase.RegisterUseCase,
	retrieve *usecase.RetrieveUseCase,
	stats *usecase.StatsUseCase,
	logger *slog.Logger,
	maxBodyBytes int64,
) *Handlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 64 << 10
	}
	return &Handlers{
		register:     register,
		retrieve:     retrieve,
		stats:        stats,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

type encodeRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type queryRequest struct {
	Prompt string `json:"prompt"`
}

type queryResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	QRCode    string    `json:"qrCode"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Entries   int    `json:"entries"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

func (h *Handlers) HandleEncode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := h.register.Register(r.Context(), req.ID, req.Text); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.retrieve.Retrieve(r.Context(), req.Prompt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no matching entry found", Code: "no_match"})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		ID:        res.ID,
		Text:      res.Text,
		QRCode:    res.DataURL(),
		Score:     res.Score,
		CreatedAt: res.CreatedAt,
	})
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable", Code: "store_unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Entries:   stats.Entries,
		Model:     stats.Model,
		Dimension: stats.Dimension,
	})
}

func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large", Code: "validation"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "validation"})
		return false
	}
	return true
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// classify maps an error to an HTTP status, a stable code and a client-safe
// message. Validation, conflict and dimension messages are passed through.
// Fingerprint faults are checked before provider and store failures since
// those wrap them.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id", err.Error()
	case errors.Is(err, domain.ErrArtifactMissing):
		return http.StatusInternalServerError, "artifact_missing", domain.ErrArtifactMissing.Error()
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusInternalServerError, "dimension_mismatch", err.Error()
	case errors.Is(err, domain.ErrDegenerateVector):
		return http.StatusInternalServerError, "degenerate_vector", domain.ErrDegenerateVector.Error()
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusInternalServerError, "embedding_unavailable", domain.ErrEmbeddingUnavailable.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusInternalServerError, "store_unavailable", domain.ErrStoreUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
