package store

import (
	"context"
	"fmt"

	"github.com/pavelanni/assessor/internal/model"
)

// ListBestScores returns every best score, oldest first.
func (s *Store) ListBestScores(ctx context.Context) ([]model.StudentBestScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, exam_id, percentage, created_at FROM student_best_scores ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var scores []model.StudentBestScore
	for rows.Next() {
		var b model.StudentBestScore
		if err := rows.Scan(&b.ID, &b.StudentID, &b.ExamID, &b.Percentage, &b.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, b)
	}
	return scores, rows.Err()
}

// Summarizer builds the review view of an attempted exam.
type Summarizer interface {
	Summarize(ctx context.Context, examID, studentID int64) (*model.ExamSummary, error)
}

// ExportResults builds export-ready results from all best scores.
func (s *Store) ExportResults(ctx context.Context, sum Summarizer) ([]model.StudentResult, error) {
	scores, err := s.ListBestScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list best scores: %w", err)
	}

	results := make([]model.StudentResult, 0, len(scores))
	for _, b := range scores {
		summary, err := sum.Summarize(ctx, b.ExamID, b.StudentID)
		if err != nil {
			return nil, fmt.Errorf("summarize exam %d for student %d: %w", b.ExamID, b.StudentID, err)
		}
		results = append(results, model.StudentResult{
			StudentID:  b.StudentID,
			ExamID:     b.ExamID,
			Percentage: b.Percentage,
			GradedAt:   b.CreatedAt,
			Summary:    summary,
		})
	}
	return results, nil
}
