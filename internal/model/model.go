package model

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an exam, question or score does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAttempted is returned when a student already holds a best score for an exam.
	ErrAlreadyAttempted = errors.New("exam already attempted")
	// ErrInvalidRequest is returned for malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
)

// QuestionType tells which body a question carries.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeSubjective     QuestionType = "subjective"
)

// ParseQuestionType maps a free-form type name to a QuestionType.
// Empty input yields TypeMultipleChoice.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch QuestionType(s) {
	case "", TypeMultipleChoice:
		return TypeMultipleChoice, true
	case TypeSubjective:
		return TypeSubjective, true
	}
	return "", false
}

// Letter is a multiple-choice option label.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"

	// SubjectiveMarker is stored in the correct-answer column of subjective questions.
	SubjectiveMarker = "S"
)

// Letters lists option labels in display order.
var Letters = [4]Letter{LetterA, LetterB, LetterC, LetterD}

// Index returns the 0-based option index of the letter, or -1.
func (l Letter) Index() int {
	for i, x := range Letters {
		if x == l {
			return i
		}
	}
	return -1
}

// Exam is a generated assessment owned by a student.
type Exam struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	InputText   string    `json:"input_text"`
	StudentID   int64     `json:"student_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuestionBody is either MultipleChoice or Subjective.
type QuestionBody interface {
	Type() QuestionType
	isQuestionBody()
}

// MultipleChoice holds four options and the label of the correct one.
type MultipleChoice struct {
	Options [4]string `json:"options"`
	Correct Letter    `json:"correct"`
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }
func (MultipleChoice) isQuestionBody()    {}

// CorrectText returns the text of the correct option.
func (m MultipleChoice) CorrectText() string {
	if i := m.Correct.Index(); i >= 0 {
		return m.Options[i]
	}
	return ""
}

// Subjective holds the model-authored guide used when grading free-text answers.
type Subjective struct {
	AnswerGuide string `json:"answer_guide"`
}

func (Subjective) Type() QuestionType { return TypeSubjective }
func (Subjective) isQuestionBody()    {}

// Question belongs to exactly one exam.
type Question struct {
	ID     int64
	ExamID int64
	Text   string
	Body   QuestionBody
}

// Type returns the question's body type.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return TypeMultipleChoice
	}
	return q.Body.Type()
}

// CorrectAnswer returns the canonical answer shown in reviews:
// the option letter for MCQ, the answer guide for subjective questions.
func (q Question) CorrectAnswer() string {
	switch b := q.Body.(type) {
	case MultipleChoice:
		return string(b.Correct)
	case Subjective:
		return b.AnswerGuide
	}
	return ""
}

// QuestionView is a question as shown to a student, without answers.
type QuestionView struct {
	QuestionID int64        `json:"questionId"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	OptionA    string       `json:"optionA,omitempty"`
	OptionB    string       `json:"optionB,omitempty"`
	OptionC    string       `json:"optionC,omitempty"`
	OptionD    string       `json:"optionD,omitempty"`
}

// NewQuestionView hides the answer of q.
func NewQuestionView(q Question) QuestionView {
	v := QuestionView{QuestionID: q.ID, Text: q.Text, Type: q.Type()}
	if mc, ok := q.Body.(MultipleChoice); ok {
		v.OptionA, v.OptionB, v.OptionC, v.OptionD = mc.Options[0], mc.Options[1], mc.Options[2], mc.Options[3]
	}
	return v
}

// StudentAnswer is one graded submission row.
type StudentAnswer struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	ExamID     int64     `json:"exam_id"`
	QuestionID int64     `json:"question_id"`
	Selected   string    `json:"selected"`
	Correct    bool      `json:"correct"`
	Points     float64   `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

// StudentBestScore marks an exam as attempted by a student.
type StudentBestScore struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	ExamID     int64     `json:"exam_id"`
	Percentage float64   `json:"percentage"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubmittedAnswer is a single answer from a submission request.
type SubmittedAnswer struct {
	QuestionID int64  `json:"questionId"`
	Selected   string `json:"selected"`
}

// EvaluationDetail describes how one submitted answer was scored.
type EvaluationDetail struct {
	QuestionID    int64   `json:"questionId"`
	Correct       bool    `json:"correct"`
	CorrectAnswer string  `json:"correctAnswer"`
	UserAnswer    string  `json:"userAnswer"`
	Points        float64 `json:"points"`
	MaxPoints     float64 `json:"maxPoints"`
}

// EvaluationResult is the graded outcome of a submission.
type EvaluationResult struct {
	Score      int                `json:"score"`
	Total      int                `json:"total"`
	Percentage float64            `json:"percentage"`
	Details    []EvaluationDetail `json:"details"`
}

// SubmitStatus enumerates submission outcomes.
type SubmitStatus string

const (
	SubmitGraded           SubmitStatus = "graded"
	SubmitAlreadyAttempted SubmitStatus = "already_attempted"
	SubmitNotFound         SubmitStatus = "not_found"
)

// SubmitOutcome is Graded(Result), AlreadyAttempted or NotFound.
type SubmitOutcome struct {
	Status SubmitStatus
	Result *EvaluationResult
}

// QuestionSummary is one row of an exam review.
type QuestionSummary struct {
	QuestionID    int64        `json:"questionId"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	UserAnswer    string       `json:"userAnswer"`
	Answered      bool         `json:"answered"`
	Correct       bool         `json:"correct"`
	Points        float64      `json:"points"`
}

// ExamSummary is the review view of an attempted exam.
type ExamSummary struct {
	ExamID         int64             `json:"examId"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	CreatedAt      time.Time         `json:"createdAt"`
	AttemptedAt    time.Time         `json:"attemptedAt"`
	CorrectCount   int               `json:"correctCount"`
	TotalQuestions int               `json:"totalQuestions"`
	Percentage     float64           `json:"percentage"`
	Questions      []QuestionSummary `json:"questions"`
}

// GenerateRequest asks for a new exam.
type GenerateRequest struct {
	InputText     string       `json:"inputText"`
	StudentID     int64        `json:"studentId,omitempty"`
	Title         string       `json:"title,omitempty"`
	Description   string       `json:"description,omitempty"`
	QuestionCount int          `json:"questionCount,omitempty"`
	ExamType      QuestionType `json:"examType,omitempty"`
}

// EssayRequest asks for a standalone essay grade.
type EssayRequest struct {
	Topic    string `json:"topic"`
	Essay    string `json:"essay"`
	Criteria string `json:"criteria,omitempty"`
}

// EssayEvaluation is the graded essay.
type EssayEvaluation struct {
	Score        float64  `json:"score"`
	MaxScore     float64  `json:"maxScore"`
	Grade        string   `json:"grade"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Fallback     bool     `json:"-"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	DefaultQuestions int    // question count when a request omits it
	MaxQuestions     int    // upper bound for requested question count
	GradingWorkers   int    // concurrent subjective grading calls per submission
	PromptVariant    string // grading prompt variant (strict, standard, lenient)
}
