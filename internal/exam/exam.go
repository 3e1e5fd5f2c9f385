// Package exam turns model output into gradable exams and grades submissions.
package exam

import (
	"context"

	"github.com/pavelanni/assessor/internal/model"
)

// Completer is the completion service. Any error means no usable output.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
}

// Repository is the persistence the exam pipeline needs.
type Repository interface {
	CreateExam(ctx context.Context, exam model.Exam, questions []model.Question) (model.Exam, []model.Question, error)
	GetExam(ctx context.Context, id int64) (model.Exam, error)
	ListQuestions(ctx context.Context, examID int64) ([]model.Question, error)
	HasBestScore(ctx context.Context, studentID, examID int64) (bool, error)
	GetBestScore(ctx context.Context, studentID, examID int64) (*model.StudentBestScore, error)
	RecordAttempt(ctx context.Context, best model.StudentBestScore, answers []model.StudentAnswer) (int, error)
	ListAnswers(ctx context.Context, studentID, examID int64) ([]model.StudentAnswer, error)
}
