package handler

import (
	"net/http"
	"time"

	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/store"
)

type statsResponse struct {
	Exams          int    `json:"exams"`
	GradedAttempts int    `json:"gradedAttempts"`
	PromptVariant  string `json:"promptVariant"`
	FallbackBank   string `json:"fallbackBank"`
}

// handleExportResults returns every graded attempt with its summary, in the
// same shape as the export command.
func (h *Handler) handleExportResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ExportResults(r.Context(), h.summaries)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	variant, err := h.store.GetMetadata(r.Context(), store.MetaPromptVariant)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ResultsExport{
		ExportedAt:    time.Now().UTC(),
		PromptVariant: variant,
		Results:       results,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	exams, err := h.store.ExamCount(ctx)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	scores, err := h.store.ListBestScores(ctx)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	variant, _ := h.store.GetMetadata(ctx, store.MetaPromptVariant)
	bank, _ := h.store.GetMetadata(ctx, store.MetaFallbackBank)
	writeJSON(w, http.StatusOK, statsResponse{
		Exams:          exams,
		GradedAttempts: len(scores),
		PromptVariant:  variant,
		FallbackBank:   bank,
	})
}
