package exam

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/assessor/internal/llm/prompts"
	"github.com/pavelanni/assessor/internal/model"
)

const (
	generationTemperature = 0.7
	tokensPerQuestion     = 350
	maxTitleRunes         = 80
)

// Request validation errors. Each wraps model.ErrInvalidRequest.
var (
	ErrInputRequired   = fmt.Errorf("%w: input text is required", model.ErrInvalidRequest)
	ErrUnknownExamType = fmt.Errorf("%w: unknown exam type", model.ErrInvalidRequest)
	ErrNoQuestions     = fmt.Errorf("%w: exam has no questions", model.ErrInvalidRequest)
)

// Generator creates exams from source text.
type Generator struct {
	llm     Completer
	repo    Repository
	prompts prompts.Builder
	cfg     model.ExamConfig
}

// NewGenerator returns a Generator. Zero config limits fall back to 5 default
// and 20 maximum questions.
func NewGenerator(llm Completer, repo Repository, cfg model.ExamConfig) *Generator {
	if cfg.DefaultQuestions <= 0 {
		cfg.DefaultQuestions = 5
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 20
	}
	return &Generator{llm: llm, repo: repo, prompts: prompts.NewBuilder(cfg.PromptVariant), cfg: cfg}
}

// Generate builds, persists and returns a new exam with its questions.
// Model failures are recovered with the fallback bank, so only invalid
// requests and storage errors are returned.
func (g *Generator) Generate(ctx context.Context, req model.GenerateRequest) (model.Exam, []model.Question, error) {
	input := strings.TrimSpace(req.InputText)
	if input == "" {
		return model.Exam{}, nil, ErrInputRequired
	}
	qType, ok := model.ParseQuestionType(string(req.ExamType))
	if !ok {
		return model.Exam{}, nil, fmt.Errorf("%w %q", ErrUnknownExamType, req.ExamType)
	}
	count := req.QuestionCount
	if count <= 0 {
		count = g.cfg.DefaultQuestions
	}
	count = min(count, g.cfg.MaxQuestions)

	questions := g.questions(ctx, input, count, qType)

	exam := model.Exam{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		InputText:   input,
		StudentID:   req.StudentID,
	}
	exam, saved, err := g.Save(ctx, exam, questions)
	if err != nil {
		return model.Exam{}, nil, err
	}
	slog.Info("exam generated", "exam_id", exam.ID, "student_id", exam.StudentID,
		"type", qType, "requested", count, "questions", len(saved))
	return exam, saved, nil
}

// Save persists an exam built elsewhere, such as one imported from a file.
// An empty title is derived from the input text.
func (g *Generator) Save(ctx context.Context, exam model.Exam, questions []model.Question) (model.Exam, []model.Question, error) {
	if len(questions) == 0 {
		return model.Exam{}, nil, ErrNoQuestions
	}
	if exam.Title == "" {
		exam.Title = defaultTitle(exam.InputText)
	}
	exam, saved, err := g.repo.CreateExam(ctx, exam, questions)
	if err != nil {
		return model.Exam{}, nil, fmt.Errorf("save exam: %w", err)
	}
	return exam, saved, nil
}

// questions asks the model for count questions and falls back to the static
// bank when the call or the parse fails.
func (g *Generator) questions(ctx context.Context, input string, count int, qType model.QuestionType) []model.Question {
	raw, err := g.llm.Complete(ctx, prompts.GenerationSystem, g.prompts.Generation(input, count, qType),
		tokensPerQuestion*count+200, generationTemperature)
	if err != nil {
		slog.Warn("question generation failed, using fallback bank", "type", qType, "count", count, "error", err)
		return FallbackQuestions(qType, count)
	}
	questions, err := ParseQuestions(raw, count, qType)
	if err != nil {
		slog.Warn("could not parse generated questions, using fallback bank", "type", qType, "count", count, "error", err)
		return FallbackQuestions(qType, count)
	}
	if len(questions) != count {
		slog.Warn("model returned fewer questions than requested", "requested", count, "got", len(questions))
	}
	return questions
}

// ListQuestions returns the exam's questions without their answers.
func (g *Generator) ListQuestions(ctx context.Context, examID int64) ([]model.QuestionView, error) {
	if _, err := g.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	questions, err := g.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	views := make([]model.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, model.NewQuestionView(q))
	}
	return views, nil
}

func defaultTitle(input string) string {
	line, _, _ := strings.Cut(input, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	return strings.TrimSpace(string([]rune(line)[:maxTitleRunes])) + "..."
}
