package exam

import (
	"context"
	"testing"

	"github.com/pavelanni/assessor/internal/model"
)

func TestSummarize(t *testing.T) {
	s := newTestStore(t)
	exam, qs := seedExam(t, s)
	ctx := context.Background()
	b := NewSummaryBuilder(s)

	sum, err := b.Summarize(ctx, exam.ID, 11)
	if err != nil || sum != nil {
		t.Fatalf("not attempted: got %+v, %v; want nil, nil", sum, err)
	}
	sum, err = b.Summarize(ctx, 9999, 11)
	if err != nil || sum != nil {
		t.Fatalf("unknown exam: got %+v, %v; want nil, nil", sum, err)
	}

	e := NewEngine(s, NewGrader(reply("9"), ""), 1)
	out, err := e.Submit(ctx, exam.ID, 11, []model.SubmittedAnswer{
		{QuestionID: qs[0].ID, Selected: "b"},
		{QuestionID: qs[2].ID, Selected: "Trade routes."},
	})
	if err != nil || out.Status != model.SubmitGraded {
		t.Fatalf("Submit: %+v, %v", out, err)
	}

	sum, err = b.Summarize(ctx, exam.ID, 11)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum == nil {
		t.Fatal("expected a summary after grading")
	}
	if sum.Title != "Geography" || sum.TotalQuestions != 3 || sum.CorrectCount != 2 {
		t.Errorf("unexpected summary header: %+v", sum)
	}
	if sum.Percentage != out.Result.Percentage {
		t.Errorf("summary percentage = %v, want submitted %v", sum.Percentage, out.Result.Percentage)
	}

	q0 := sum.Questions[0]
	if !q0.Answered || !q0.Correct || q0.UserAnswer != "B" || q0.CorrectAnswer != "B" || len(q0.Options) != 4 {
		t.Errorf("unexpected MCQ summary: %+v", q0)
	}
	q1 := sum.Questions[1]
	if q1.Answered || q1.Correct || q1.UserAnswer != "" {
		t.Errorf("unanswered question should be unanswered and incorrect: %+v", q1)
	}
	q2 := sum.Questions[2]
	if q2.Type != model.TypeSubjective || q2.Points != 9 || q2.CorrectAnswer != "Trade, transport and water supply." || q2.Options != nil {
		t.Errorf("unexpected subjective summary: %+v", q2)
	}
}
