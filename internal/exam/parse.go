package exam

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pavelanni/assessor/internal/model"
)

// questionArraySchema describes the array a generation prompt asks for.
// Subjective elements need an answer guide; all others are multiple choice
// and need options and a correct answer (a letter, option text or 0-based index).
const questionArraySchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["questionText"],
		"properties": {
			"questionText": {"type": "string", "pattern": "\\S"},
			"questionType": {"type": "string", "enum": ["", "multiple_choice", "subjective"]},
			"options": {"type": "array", "items": {"type": "string", "pattern": "\\S"}, "minItems": 4},
			"correctAnswer": {"type": ["string", "integer"]},
			"subjectiveAnswer": {"type": "string", "pattern": "\\S"}
		},
		"if": {"properties": {"questionType": {"const": "subjective"}}, "required": ["questionType"]},
		"then": {"required": ["subjectiveAnswer"]},
		"else": {"required": ["options", "correctAnswer"]}
	}
}`

var questionSchema = mustSchema(questionArraySchema)

var (
	errNoJSON       = errors.New("no JSON value in response")
	errTypeMismatch = errors.New("question type differs from the requested type")
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile question schema: %v", err))
	}
	return schema
}

type generatedQuestion struct {
	QuestionText     string          `json:"questionText"`
	QuestionType     string          `json:"questionType"`
	Options          []string        `json:"options"`
	CorrectAnswer    json.RawMessage `json:"correctAnswer"`
	SubjectiveAnswer string          `json:"subjectiveAnswer"`
}

// ParseQuestions extracts up to count questions from raw completion text.
// Multiple-choice options are shuffled. Any structural problem fails the
// whole batch; fewer questions than requested is not an error. A non-empty
// want rejects the batch when any question is of another type.
func ParseQuestions(raw string, count int, want model.QuestionType) ([]model.Question, error) {
	body, err := SliceJSON(raw, '[', ']')
	if err != nil {
		return nil, err
	}

	result, err := questionSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validate questions: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("questions failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var items []generatedQuestion
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if count > 0 && len(items) > count {
		items = items[:count]
	}

	questions := make([]model.Question, 0, len(items))
	for i, it := range items {
		q := model.Question{Text: strings.TrimSpace(it.QuestionText)}
		qt, _ := model.ParseQuestionType(it.QuestionType)
		if want != "" && qt != want {
			return nil, fmt.Errorf("question %d is %s: %w", i+1, qt, errTypeMismatch)
		}
		if qt == model.TypeSubjective {
			q.Body = model.Subjective{AnswerGuide: strings.TrimSpace(it.SubjectiveAnswer)}
		} else {
			q.Body = multipleChoice(it.Options, it.CorrectAnswer)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// SliceJSON returns raw from the first opening delimiter to the last closing
// one, dropping any prose the model wrapped around the JSON.
func SliceJSON(raw string, opening, closing byte) ([]byte, error) {
	start := strings.IndexByte(raw, opening)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	return []byte(raw[start : end+1]), nil
}

func multipleChoice(options []string, answer json.RawMessage) model.MultipleChoice {
	correct := resolveCorrect(options, answer)

	// Keep four options; the correct one survives truncation.
	if correct >= 4 {
		options = append(append([]string{}, options[:3]...), options[correct])
		correct = 3
	}
	var opts [4]string
	for i := range opts {
		opts[i] = strings.TrimSpace(options[i])
	}
	return Shuffle(opts, correct)
}

// resolveCorrect finds the index of the stated correct answer: label, exact
// text, substring either way, then index 0.
func resolveCorrect(options []string, answer json.RawMessage) int {
	answer = bytes.TrimSpace(answer)
	var idx int
	if err := json.Unmarshal(answer, &idx); err == nil {
		if idx >= 0 && idx < len(options) {
			return idx
		}
		return 0
	}

	var s string
	if err := json.Unmarshal(answer, &s); err != nil {
		return 0
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if l, ok := isLetterForm(s); ok && l.Index() < len(options) {
		return l.Index()
	}
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), s) {
			return i
		}
	}
	ls := strings.ToLower(s)
	for i, opt := range options {
		lo := strings.ToLower(strings.TrimSpace(opt))
		if lo == "" {
			continue
		}
		if strings.Contains(lo, ls) || strings.Contains(ls, lo) {
			return i
		}
	}
	return 0
}
