package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/assessor/internal/essay"
	"github.com/pavelanni/assessor/internal/exam"
	"github.com/pavelanni/assessor/internal/i18n"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/store"
)

const maxBodyBytes = 2 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	generator *exam.Generator
	engine    *exam.Engine
	summaries *exam.SummaryBuilder
	essays    *essay.Evaluator
	config    model.ExamConfig
}

// New creates a new Handler. llm backs generation and all grading.
func New(s *store.Store, llm exam.Completer, cfg model.ExamConfig) *Handler {
	grader := exam.NewGrader(llm, cfg.PromptVariant)
	return &Handler{
		store:     s,
		generator: exam.NewGenerator(llm, s, cfg),
		engine:    exam.NewEngine(s, grader, cfg.GradingWorkers),
		summaries: exam.NewSummaryBuilder(s),
		essays:    essay.NewEvaluator(llm, cfg.PromptVariant),
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/exams", h.handleGenerate)
		r.Get("/exams/{examID}/questions", h.handleQuestions)
		r.Post("/exams/{examID}/submit", h.handleSubmit)
		r.Get("/exams/{examID}/summary", h.handleSummary)
		r.Post("/essays/evaluate", h.handleEssay)
		r.Get("/admin/results", h.handleExportResults)
		r.Get("/admin/stats", h.handleStats)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type generateResponse struct {
	ExamID        int64  `json:"examId"`
	QuestionCount int    `json:"questionCount"`
	Message       string `json:"message"`
}

type submitRequest struct {
	StudentID int64                   `json:"studentId"`
	Answers   []model.SubmittedAnswer `json:"answers"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "ErrInternal"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Debug("invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrInvalidBody"))
		return false
	}
	return true
}

func examIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrInvalidExamID"))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.InputText) == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrInputRequired"))
		return
	}

	e, questions, err := h.generator.Generate(r.Context(), req)
	if errors.Is(err, model.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), invalidGenerateKey(err)))
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{
		ExamID:        e.ID,
		QuestionCount: len(questions),
		Message:       i18n.Tp(r.Context(), "QuestionsGenerated", len(questions)),
	})
}

// invalidGenerateKey picks the message for a rejected generation request.
func invalidGenerateKey(err error) string {
	switch {
	case errors.Is(err, exam.ErrInputRequired):
		return "ErrInputRequired"
	case errors.Is(err, exam.ErrUnknownExamType):
		return "ErrInvalidExamType"
	default:
		return "ErrInvalidRequest"
	}
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(w, r)
	if !ok {
		return
	}
	views, err := h.generator.ListQuestions(r.Context(), examID)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, i18n.Td(r.Context(), "ErrExamNotFound", map[string]any{"ID": examID}))
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StudentID <= 0 {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrStudentRequired"))
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrNoAnswers"))
		return
	}

	out, err := h.engine.Submit(r.Context(), examID, req.StudentID, req.Answers)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	switch out.Status {
	case model.SubmitGraded:
		writeJSON(w, http.StatusOK, out.Result)
	case model.SubmitAlreadyAttempted:
		writeError(w, http.StatusConflict, i18n.T(r.Context(), "ErrAlreadyAttempted"))
	default:
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ErrSubmissionNotFound"))
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	examID, ok := examIDParam(w, r)
	if !ok {
		return
	}
	studentID, err := strconv.ParseInt(r.URL.Query().Get("studentId"), 10, 64)
	if err != nil || studentID <= 0 {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrStudentRequired"))
		return
	}

	sum, err := h.summaries.Summarize(r.Context(), examID, studentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if sum == nil {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "ErrSummaryNotAvailable"))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleEssay(w http.ResponseWriter, r *http.Request) {
	var req model.EssayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Essay) == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "ErrEssayRequired"))
		return
	}
	writeJSON(w, http.StatusOK, h.essays.Evaluate(r.Context(), req))
}
