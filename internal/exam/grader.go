package exam

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pavelanni/assessor/internal/llm/prompts"
)

const (
	// NeutralGrade is awarded when the model's grade cannot be obtained.
	NeutralGrade = 5
	// MaxGrade is the top of the subjective scale and the weight of one question.
	MaxGrade = 10
	// PassGrade is the lowest subjective grade shown as correct.
	PassGrade = 7

	gradingTemperature = 0.1
	gradingMaxTokens   = 10
)

var (
	wholeGradeRegex = regexp.MustCompile(`\b(10|[0-9])\b`)
	nonNumericRegex = regexp.MustCompile(`[^0-9.]`)
)

// Grader scores free-text answers with the completion service.
type Grader struct {
	llm     Completer
	prompts prompts.Builder
}

// NewGrader returns a Grader using the given prompt variant.
func NewGrader(llm Completer, variant string) *Grader {
	return &Grader{llm: llm, prompts: prompts.NewBuilder(variant)}
}

// Grade returns a score in [0, MaxGrade]. Blank answers score 0 without a
// model call; any model or parse failure yields NeutralGrade.
func (g *Grader) Grade(ctx context.Context, question, expected, answer string) int {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	raw, err := g.llm.Complete(ctx, prompts.GradingSystem, g.prompts.SubjectiveGrading(question, expected, answer),
		gradingMaxTokens, gradingTemperature)
	if err != nil {
		slog.Warn("subjective grading failed, using neutral grade", "error", err)
		return NeutralGrade
	}
	grade, ok := ParseGrade(raw)
	if !ok {
		slog.Warn("unparseable subjective grade, using neutral grade", "raw", raw)
		return NeutralGrade
	}
	return grade
}

// ParseGrade reads a 0-10 grade from model output. A whole number standing
// alone wins; otherwise the digits are read as a float, clamped and rounded.
func ParseGrade(raw string) (int, bool) {
	if m := wholeGradeRegex.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	digits := nonNumericRegex.ReplaceAllString(raw, "")
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(math.Min(math.Max(f, 0), MaxGrade))), true
}
