package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/assessor/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestExam(t *testing.T, s *Store) (model.Exam, []model.Question) {
	t.Helper()
	exam, qs, err := s.CreateExam(context.Background(),
		model.Exam{Title: "Go basics", Description: "Intro", InputText: "Go is a language.", StudentID: 3},
		[]model.Question{
			{Text: "Who designed Go?", Body: model.MultipleChoice{
				Options: [4]string{"Google", "Mozilla", "Apple", "Oracle"}, Correct: model.LetterA}},
			{Text: "Explain goroutines.", Body: model.Subjective{AnswerGuide: "Lightweight threads managed by the runtime."}},
		})
	if err != nil {
		t.Fatalf("insertTestExam: %v", err)
	}
	return exam, qs
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty DB should return zero count.
	count, err := s.ExamCount(ctx)
	if err != nil {
		t.Fatalf("ExamCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 exams, got %d", count)
	}

	exam, qs := insertTestExam(t, s)
	if exam.ID == 0 || exam.CreatedAt.IsZero() {
		t.Errorf("expected ID and creation time, got %+v", exam)
	}
	if len(qs) != 2 || qs[0].ID == 0 || qs[0].ExamID != exam.ID {
		t.Fatalf("unexpected saved questions: %+v", qs)
	}

	got, err := s.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Title != "Go basics" || got.StudentID != 3 || got.InputText != "Go is a language." {
		t.Errorf("unexpected exam: %+v", got)
	}

	// Not found.
	if _, err := s.GetExam(ctx, 9999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	count, _ = s.ExamCount(ctx)
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestListQuestionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	exam, _ := insertTestExam(t, s)

	qs, err := s.ListQuestions(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}

	mc, ok := qs[0].Body.(model.MultipleChoice)
	if !ok {
		t.Fatalf("question 0 body = %T, want MultipleChoice", qs[0].Body)
	}
	if mc.Options != [4]string{"Google", "Mozilla", "Apple", "Oracle"} || mc.Correct != model.LetterA {
		t.Errorf("unexpected MCQ body: %+v", mc)
	}

	sub, ok := qs[1].Body.(model.Subjective)
	if !ok {
		t.Fatalf("question 1 body = %T, want Subjective", qs[1].Body)
	}
	if sub.AnswerGuide != "Lightweight threads managed by the runtime." {
		t.Errorf("unexpected answer guide %q", sub.AnswerGuide)
	}

	empty, err := s.ListQuestions(context.Background(), 9999)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no questions for unknown exam, got %d", len(empty))
	}
}

func TestSubjectiveMarkerStored(t *testing.T) {
	s := newTestStore(t)
	_, qs := insertTestExam(t, s)

	var correct string
	if err := s.db.QueryRow(`SELECT correct_answer FROM questions WHERE id = ?`, qs[1].ID).Scan(&correct); err != nil {
		t.Fatalf("query: %v", err)
	}
	if correct != model.SubjectiveMarker {
		t.Errorf("correct_answer = %q, want %q", correct, model.SubjectiveMarker)
	}
}

func TestRecordAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam, qs := insertTestExam(t, s)

	// No score yet.
	best, err := s.GetBestScore(ctx, 10, exam.ID)
	if err != nil {
		t.Fatalf("GetBestScore: %v", err)
	}
	if best != nil {
		t.Error("expected nil best score")
	}
	has, err := s.HasBestScore(ctx, 10, exam.ID)
	if err != nil || has {
		t.Fatalf("HasBestScore = %v, %v; want false", has, err)
	}

	answers := []model.StudentAnswer{
		{QuestionID: qs[0].ID, Selected: "A", Correct: true, Points: 10},
		{QuestionID: qs[1].ID, Selected: "They are threads", Correct: false, Points: 4},
	}
	failed, err := s.RecordAttempt(ctx, model.StudentBestScore{StudentID: 10, ExamID: exam.ID, Percentage: 70}, answers)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if failed != 0 {
		t.Errorf("expected no failed answers, got %d", failed)
	}

	has, _ = s.HasBestScore(ctx, 10, exam.ID)
	if !has {
		t.Error("expected best score to exist")
	}
	best, err = s.GetBestScore(ctx, 10, exam.ID)
	if err != nil || best == nil {
		t.Fatalf("GetBestScore: %v, %v", best, err)
	}
	if best.Percentage != 70 || best.CreatedAt.IsZero() {
		t.Errorf("unexpected best score: %+v", best)
	}

	stored, err := s.ListAnswers(ctx, 10, exam.ID)
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(stored))
	}
	if !stored[0].Correct || stored[0].Points != 10 || stored[1].Selected != "They are threads" || stored[1].Points != 4 {
		t.Errorf("unexpected stored answers: %+v", stored)
	}
	if stored[0].StudentID != 10 || stored[0].ExamID != exam.ID {
		t.Errorf("answer not keyed by student and exam: %+v", stored[0])
	}
}

func TestRecordAttemptKeepsScoreWhenAnswerFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam, qs := insertTestExam(t, s)

	answers := []model.StudentAnswer{
		{QuestionID: qs[0].ID, Selected: "A", Correct: true, Points: 10},
		{QuestionID: 9999, Selected: "orphan"},
	}
	failed, err := s.RecordAttempt(ctx, model.StudentBestScore{StudentID: 3, ExamID: exam.ID, Percentage: 50}, answers)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	best, err := s.GetBestScore(ctx, 3, exam.ID)
	if err != nil || best == nil {
		t.Fatalf("GetBestScore: %v, %v", best, err)
	}
	if best.Percentage != 50 {
		t.Errorf("stored percentage = %v, want 50", best.Percentage)
	}
	stored, err := s.ListAnswers(ctx, 3, exam.ID)
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	if len(stored) != 1 || stored[0].QuestionID != qs[0].ID {
		t.Errorf("expected only the valid answer to be stored, got %+v", stored)
	}
}

func TestRecordAttemptUniqueViolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam, qs := insertTestExam(t, s)

	first := []model.StudentAnswer{{QuestionID: qs[0].ID, Selected: "A", Correct: true, Points: 10}}
	if _, err := s.RecordAttempt(ctx, model.StudentBestScore{StudentID: 1, ExamID: exam.ID, Percentage: 100}, first); err != nil {
		t.Fatalf("first RecordAttempt: %v", err)
	}

	second := []model.StudentAnswer{{QuestionID: qs[0].ID, Selected: "B"}}
	_, err := s.RecordAttempt(ctx, model.StudentBestScore{StudentID: 1, ExamID: exam.ID, Percentage: 0}, second)
	if !errors.Is(err, model.ErrAlreadyAttempted) {
		t.Fatalf("expected ErrAlreadyAttempted, got %v", err)
	}

	stored, _ := s.ListAnswers(ctx, 1, exam.ID)
	if len(stored) != 1 {
		t.Errorf("duplicate attempt wrote answers: %d rows", len(stored))
	}
	best, _ := s.GetBestScore(ctx, 1, exam.ID)
	if best.Percentage != 100 {
		t.Errorf("best score overwritten: %v", best.Percentage)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	s := newTestStore(t)
	if isUniqueViolation(errors.New("UNIQUE constraint failed")) {
		t.Error("plain errors are not sqlite errors")
	}
	if _, err := s.db.Exec(`INSERT INTO store_metadata (key, value) VALUES ('k', 'v')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := s.db.Exec(`INSERT INTO store_metadata (key, value) VALUES ('k', 'w')`)
	if !isUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetMetadata(ctx, MetaPromptVariant)
	if err != nil || v != "" {
		t.Fatalf("GetMetadata on empty store = %q, %v", v, err)
	}
	if err := s.SetMetadata(ctx, MetaPromptVariant, "strict"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata(ctx, MetaPromptVariant, "lenient"); err != nil {
		t.Fatalf("SetMetadata update: %v", err)
	}
	v, _ = s.GetMetadata(ctx, MetaPromptVariant)
	if v != "lenient" {
		t.Errorf("GetMetadata = %q, want lenient", v)
	}
}

type stubSummarizer struct {
	calls int
}

func (st *stubSummarizer) Summarize(_ context.Context, examID, _ int64) (*model.ExamSummary, error) {
	st.calls++
	return &model.ExamSummary{ExamID: examID, Title: "stub"}, nil
}

func TestExportResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	exam, _ := insertTestExam(t, s)

	for i, pct := range []float64{55.5, 91} {
		best := model.StudentBestScore{StudentID: int64(i + 1), ExamID: exam.ID, Percentage: pct, CreatedAt: time.Now()}
		if _, err := s.RecordAttempt(ctx, best, nil); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	sum := &stubSummarizer{}
	results, err := s.ExportResults(ctx, sum)
	if err != nil {
		t.Fatalf("ExportResults: %v", err)
	}
	if len(results) != 2 || sum.calls != 2 {
		t.Fatalf("expected 2 results and 2 summaries, got %d and %d", len(results), sum.calls)
	}
	if results[0].StudentID != 1 || results[0].Percentage != 55.5 || results[1].Percentage != 91 {
		t.Errorf("unexpected results: %+v", results)
	}
	if results[0].Summary == nil || results[0].Summary.Title != "stub" {
		t.Errorf("summary not attached: %+v", results[0])
	}
}
