package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/assessor/internal/model"
)

// Tracker guards the one-attempt rule for (student, exam) pairs.
//
// The check in Attempted and the insert in Record are not atomic. Two
// concurrent submissions may both pass Attempted; the store's uniqueness
// constraint rejects the second insert and Record reports it as
// model.ErrAlreadyAttempted.
type Tracker struct {
	repo Repository
}

// NewTracker returns a Tracker over repo.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{repo: repo}
}

// Attempted reports whether the student already holds a best score for the exam.
func (t *Tracker) Attempted(ctx context.Context, studentID, examID int64) (bool, error) {
	ok, err := t.repo.HasBestScore(ctx, studentID, examID)
	if err != nil {
		return false, fmt.Errorf("check best score: %w", err)
	}
	return ok, nil
}

// Record persists the best score and the graded answers of an attempt.
func (t *Tracker) Record(ctx context.Context, studentID, examID int64, percentage float64, answers []model.StudentAnswer) error {
	best := model.StudentBestScore{
		StudentID:  studentID,
		ExamID:     examID,
		Percentage: percentage,
		CreatedAt:  time.Now(),
	}
	failed, err := t.repo.RecordAttempt(ctx, best, answers)
	if errors.Is(err, model.ErrAlreadyAttempted) {
		slog.Warn("concurrent attempt rejected by uniqueness constraint", "student_id", studentID, "exam_id", examID)
		return err
	}
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if failed > 0 {
		slog.Warn("some answers were not stored", "student_id", studentID, "exam_id", examID,
			"failed", failed, "total", len(answers))
	}
	return nil
}
