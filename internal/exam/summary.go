package exam

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavelanni/assessor/internal/model"
)

// SummaryBuilder assembles the review view of an attempted exam.
type SummaryBuilder struct {
	repo Repository
}

// NewSummaryBuilder returns a SummaryBuilder over repo.
func NewSummaryBuilder(repo Repository) *SummaryBuilder {
	return &SummaryBuilder{repo: repo}
}

// Summarize returns nil without error when the exam is unknown or the
// student has not attempted it.
//
// The percentage is the stored best score, the same points-weighted figure
// returned at submission. Questions without a stored answer are shown as
// unanswered and incorrect.
func (b *SummaryBuilder) Summarize(ctx context.Context, examID, studentID int64) (*model.ExamSummary, error) {
	exam, err := b.repo.GetExam(ctx, examID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	best, err := b.repo.GetBestScore(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("get best score: %w", err)
	}
	if best == nil {
		return nil, nil
	}

	questions, err := b.repo.ListQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := b.repo.ListAnswers(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	byQuestion := make(map[int64]model.StudentAnswer, len(answers))
	for _, a := range answers {
		if _, dup := byQuestion[a.QuestionID]; !dup {
			byQuestion[a.QuestionID] = a
		}
	}

	sum := &model.ExamSummary{
		ExamID:         exam.ID,
		Title:          exam.Title,
		Description:    exam.Description,
		CreatedAt:      exam.CreatedAt,
		AttemptedAt:    best.CreatedAt,
		TotalQuestions: len(questions),
		Percentage:     best.Percentage,
		Questions:      make([]model.QuestionSummary, 0, len(questions)),
	}
	for _, q := range questions {
		qs := model.QuestionSummary{
			QuestionID:    q.ID,
			Text:          q.Text,
			Type:          q.Type(),
			CorrectAnswer: q.CorrectAnswer(),
		}
		if mc, ok := q.Body.(model.MultipleChoice); ok {
			qs.Options = mc.Options[:]
		}
		if a, ok := byQuestion[q.ID]; ok {
			qs.Answered = true
			qs.UserAnswer = a.Selected
			qs.Correct = a.Correct
			qs.Points = a.Points
		}
		if qs.Correct {
			sum.CorrectCount++
		}
		sum.Questions = append(sum.Questions, qs)
	}
	return sum, nil
}
