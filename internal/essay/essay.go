// Package essay grades standalone essays with the completion service.
package essay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/pavelanni/assessor/internal/exam"
	"github.com/pavelanni/assessor/internal/llm/prompts"
	"github.com/pavelanni/assessor/internal/model"
)

// DefaultCriteria is used when a request names no criteria.
const DefaultCriteria = "clarity, structure, argument strength, grammar"

const (
	maxScore    = 100
	maxTokens   = 1000
	temperature = 0.3
)

// Fallback evaluation returned whenever the model's answer is unusable.
const (
	FallbackScore    = 75
	FallbackGrade    = "B"
	FallbackFeedback = "Your essay presents its ideas clearly and shows a good grasp of the topic. " +
		"Keep developing your arguments with specific evidence and examples."
)

var errNoScore = errors.New("essay evaluation has no score")

var (
	fallbackStrengths    = []string{"Addresses the topic", "Readable overall structure"}
	fallbackImprovements = []string{"Support each claim with evidence", "Strengthen the conclusion"}
)

// Evaluator grades essays.
type Evaluator struct {
	llm     exam.Completer
	prompts prompts.Builder
}

// NewEvaluator returns an Evaluator using the given prompt variant.
func NewEvaluator(llm exam.Completer, variant string) *Evaluator {
	return &Evaluator{llm: llm, prompts: prompts.NewBuilder(variant)}
}

// Evaluate grades req. It never fails: any model or parse problem yields
// the fallback evaluation. Callers validate that the essay is not blank.
func (e *Evaluator) Evaluate(ctx context.Context, req model.EssayRequest) model.EssayEvaluation {
	criteria := strings.TrimSpace(req.Criteria)
	if criteria == "" {
		criteria = DefaultCriteria
	}
	raw, err := e.llm.Complete(ctx, prompts.EssaySystem,
		e.prompts.EssayGrading(strings.TrimSpace(req.Topic), req.Essay, criteria), maxTokens, temperature)
	if err != nil {
		slog.Warn("essay grading failed, using fallback evaluation", "error", err)
		return Fallback()
	}
	ev, err := Parse(raw)
	if err != nil {
		slog.Warn("could not parse essay evaluation, using fallback", "error", err)
		return Fallback()
	}
	return ev
}

// Fallback returns the fixed evaluation used when grading fails.
func Fallback() model.EssayEvaluation {
	return model.EssayEvaluation{
		Score:        FallbackScore,
		MaxScore:     maxScore,
		Grade:        FallbackGrade,
		Feedback:     FallbackFeedback,
		Strengths:    append([]string(nil), fallbackStrengths...),
		Improvements: append([]string(nil), fallbackImprovements...),
		Fallback:     true,
	}
}

type rawEvaluation struct {
	Score        *float64 `json:"score"`
	MaxScore     float64  `json:"maxScore"`
	Grade        string   `json:"grade"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Parse reads an evaluation object from model output. The score is scaled
// to 0-100 and a missing grade is derived from it.
func Parse(raw string) (model.EssayEvaluation, error) {
	body, err := exam.SliceJSON(raw, '{', '}')
	if err != nil {
		return model.EssayEvaluation{}, err
	}
	var r rawEvaluation
	if err := json.Unmarshal(body, &r); err != nil {
		return model.EssayEvaluation{}, fmt.Errorf("decode essay evaluation: %w", err)
	}
	if r.Score == nil {
		return model.EssayEvaluation{}, errNoScore
	}

	score := *r.Score
	if r.MaxScore > 0 && r.MaxScore != maxScore {
		score = score / r.MaxScore * maxScore
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Round(math.Min(math.Max(score, 0), maxScore)*100) / 100

	grade := strings.ToUpper(strings.TrimSpace(r.Grade))
	if grade == "" {
		grade = letterGrade(score)
	}
	return model.EssayEvaluation{
		Score:        score,
		MaxScore:     maxScore,
		Grade:        grade,
		Feedback:     strings.TrimSpace(r.Feedback),
		Strengths:    nonNil(r.Strengths),
		Improvements: nonNil(r.Improvements),
	}, nil
}

func letterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	}
	return "F"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
