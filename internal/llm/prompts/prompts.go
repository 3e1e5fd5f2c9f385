package prompts

import (
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/assessor/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
	sourceContentRegex      = regexp.MustCompile(`(?i)</?\s*source-content\b[^>]*>`)
)

// System prompts paired with the user prompts built below.
const (
	GenerationSystem = "You are an expert exam author. You output strictly valid JSON and nothing else."
	GradingSystem    = "You are a strict but fair exam grader. You output only what you are asked for."
	EssaySystem      = "You are an experienced essay examiner. You output strictly valid JSON and nothing else."
)

const (
	maxAnswerRunes = 10000
	maxEssayRunes  = 20000
	maxSourceRunes = 20000
)

// PromptVariant represents a grading prompt variant.
type PromptVariant string

const (
	// PromptStrict is a strict grading variant for majors.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default grading variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient is a lenient grading variant for electives.
	PromptLenient PromptVariant = "lenient"
)

var guidance = map[PromptVariant]string{
	PromptStrict:   "GRADING STANCE: strict. Award high marks only for complete, precise answers. Penalize vagueness and missing key points.",
	PromptStandard: "GRADING STANCE: standard. Reward correct understanding; deduct for errors and significant omissions.",
	PromptLenient:  "GRADING STANCE: lenient. Give credit for partially correct ideas and reasonable reasoning even if incomplete.",
}

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	_, ok := guidance[PromptVariant(v)]
	return ok
}

// Builder renders generation and grading prompts. The zero value uses the
// standard variant.
type Builder struct {
	variant PromptVariant
}

// NewBuilder returns a builder for the variant, falling back to standard
// for unknown names.
func NewBuilder(variant string) Builder {
	if !IsValidVariant(variant) {
		return Builder{variant: PromptStandard}
	}
	return Builder{variant: PromptVariant(variant)}
}

// Variant returns the grading variant in use.
func (b Builder) Variant() PromptVariant {
	if b.variant == "" {
		return PromptStandard
	}
	return b.variant
}

// Generation builds the prompt asking for count questions of type t about topic.
func (b Builder) Generation(topic string, count int, t model.QuestionType) string {
	name := "generate_multiple_choice.tmpl"
	if t == model.TypeSubjective {
		name = "generate_subjective.tmpl"
	}
	topic = sourceContentRegex.ReplaceAllString(topic, "")
	return render(name, struct {
		Topic string
		Count int
	}{truncate(strings.TrimSpace(topic), maxSourceRunes), count},
		fmt.Sprintf("Generate exactly %d %s questions about: %s\nReturn ONLY a JSON array.", count, t, topic))
}

// SubjectiveGrading builds the prompt asking for a 0-10 grade of answer.
func (b Builder) SubjectiveGrading(question, expected, answer string) string {
	return render("grade_subjective.tmpl", struct {
		Question, Expected, Answer, Guidance string
	}{question, expected, sanitize(answer, maxAnswerRunes), guidance[b.Variant()]},
		fmt.Sprintf("Question: %s\nExpected: %s\nAnswer: %s\nRespond with ONLY a number from 0 to 10.", question, expected, answer))
}

// EssayGrading builds the prompt asking for a JSON essay evaluation.
func (b Builder) EssayGrading(topic, essay, criteria string) string {
	return render("grade_essay.tmpl", struct {
		Topic, Essay, Criteria, Guidance string
	}{topic, sanitize(essay, maxEssayRunes), criteria, guidance[b.Variant()]},
		fmt.Sprintf("Topic: %s\nCriteria: %s\nEssay: %s\nRespond ONLY with a JSON object.", topic, criteria, essay))
}

// render executes an embedded template. The fallback text is returned if
// execution fails so that prompt building never errors.
func render(name string, data any, fallback string) string {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		slog.Error("prompt template failed", "template", name, "error", err)
		return fallback
	}
	return sb.String()
}

func sanitize(answer string, limit int) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}
	return truncate(answer, limit)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "\n\n[Truncated due to length]"
}
