package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/assessor/internal/model"
)

const defaultGradingWorkers = 4

// Engine grades exam submissions.
type Engine struct {
	repo    Repository
	grader  *Grader
	tracker *Tracker
	workers int
}

// NewEngine returns an Engine grading up to workers subjective answers of
// one submission at a time.
func NewEngine(repo Repository, grader *Grader, workers int) *Engine {
	if workers <= 0 {
		workers = defaultGradingWorkers
	}
	return &Engine{repo: repo, grader: grader, tracker: NewTracker(repo), workers: workers}
}

// Submit grades a student's answers and records the attempt. Unknown exams
// or question IDs and repeated attempts are reported through the outcome
// status; the error is reserved for invalid input and storage failures.
func (e *Engine) Submit(ctx context.Context, examID, studentID int64, answers []model.SubmittedAnswer) (model.SubmitOutcome, error) {
	if len(answers) == 0 {
		return model.SubmitOutcome{}, fmt.Errorf("%w: no answers submitted", model.ErrInvalidRequest)
	}

	if _, err := e.repo.GetExam(ctx, examID); errors.Is(err, model.ErrNotFound) {
		return model.SubmitOutcome{Status: model.SubmitNotFound}, nil
	} else if err != nil {
		return model.SubmitOutcome{}, fmt.Errorf("get exam: %w", err)
	}

	attempted, err := e.tracker.Attempted(ctx, studentID, examID)
	if err != nil {
		return model.SubmitOutcome{}, err
	}
	if attempted {
		slog.Warn("exam already attempted", "student_id", studentID, "exam_id", examID)
		return model.SubmitOutcome{Status: model.SubmitAlreadyAttempted}, nil
	}

	questions, err := e.repo.ListQuestions(ctx, examID)
	if err != nil {
		return model.SubmitOutcome{}, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	// Resolve every answer before grading so that a bad ID costs no model calls.
	type item struct {
		q      model.Question
		answer string
	}
	var items []item
	seen := make(map[int64]bool, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			slog.Warn("submission references unknown question", "exam_id", examID, "question_id", a.QuestionID)
			return model.SubmitOutcome{Status: model.SubmitNotFound}, nil
		}
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		items = append(items, item{q: q, answer: a.Selected})
	}

	details := make([]model.EvaluationDetail, len(items))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, it := range items {
		switch body := it.q.Body.(type) {
		case model.Subjective:
			g.Go(func() error {
				grade := e.grader.Grade(ctx, it.q.Text, body.AnswerGuide, it.answer)
				details[i] = model.EvaluationDetail{
					QuestionID:    it.q.ID,
					Correct:       grade >= PassGrade,
					CorrectAnswer: body.AnswerGuide,
					UserAnswer:    it.answer,
					Points:        float64(grade),
					MaxPoints:     MaxGrade,
				}
				return nil
			})
		case model.MultipleChoice:
			details[i] = gradeMultipleChoice(it.q.ID, body, it.answer)
		}
	}
	if err := g.Wait(); err != nil {
		return model.SubmitOutcome{}, err
	}

	result := &model.EvaluationResult{Total: len(details), Details: details}
	var points, possible float64
	rows := make([]model.StudentAnswer, 0, len(details))
	for _, d := range details {
		if d.Correct {
			result.Score++
		}
		points += d.Points
		possible += d.MaxPoints
		rows = append(rows, model.StudentAnswer{
			StudentID:  studentID,
			ExamID:     examID,
			QuestionID: d.QuestionID,
			Selected:   d.UserAnswer,
			Correct:    d.Correct,
			Points:     d.Points,
		})
	}
	result.Percentage = percentage(points, possible)

	if err := e.tracker.Record(ctx, studentID, examID, result.Percentage, rows); errors.Is(err, model.ErrAlreadyAttempted) {
		return model.SubmitOutcome{Status: model.SubmitAlreadyAttempted}, nil
	} else if err != nil {
		return model.SubmitOutcome{}, err
	}

	slog.Info("exam graded", "student_id", studentID, "exam_id", examID,
		"correct", result.Score, "total", result.Total, "percentage", result.Percentage)
	return model.SubmitOutcome{Status: model.SubmitGraded, Result: result}, nil
}

// gradeMultipleChoice compares letters, never raw strings.
func gradeMultipleChoice(id int64, mc model.MultipleChoice, selected string) model.EvaluationDetail {
	d := model.EvaluationDetail{
		QuestionID:    id,
		CorrectAnswer: string(mc.Correct),
		UserAnswer:    selected,
		MaxPoints:     MaxGrade,
	}
	want, okWant := Normalize(string(mc.Correct))
	got, okGot := Resolve(selected, mc)
	if okGot {
		d.UserAnswer = string(got)
	}
	if okWant && okGot && got == want {
		d.Correct = true
		d.Points = MaxGrade
	}
	return d
}

// percentage returns points/possible as a percentage rounded to two decimals.
func percentage(points, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return math.Round(points/possible*100*100) / 100
}
