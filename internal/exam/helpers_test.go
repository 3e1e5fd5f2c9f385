package exam

import (
	"context"
	"sync"
	"testing"

	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/store"
)

// fakeLLM answers every call with fn. It is safe for concurrent use.
type fakeLLM struct {
	mu    sync.Mutex
	fn    func(system, user string) (string, error)
	calls []string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string, _ int, _ float32) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, user)
	f.mu.Unlock()
	return f.fn(system, user)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func reply(s string) *fakeLLM {
	return &fakeLLM{fn: func(string, string) (string, error) { return s, nil }}
}

func failing(err error) *fakeLLM {
	return &fakeLLM{fn: func(string, string) (string, error) { return "", err }}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedExam stores an exam with two multiple-choice questions (correct B and C)
// and one subjective question.
func seedExam(t *testing.T, s *store.Store) (model.Exam, []model.Question) {
	t.Helper()
	exam, qs, err := s.CreateExam(context.Background(),
		model.Exam{Title: "Geography", Description: "Capitals and sums", InputText: "Europe", StudentID: 1},
		[]model.Question{
			{Text: "What is the capital of France?", Body: model.MultipleChoice{
				Options: [4]string{"London", "Paris", "Berlin", "Madrid"}, Correct: model.LetterB}},
			{Text: "What is 2 + 2?", Body: model.MultipleChoice{
				Options: [4]string{"2", "3", "4", "5"}, Correct: model.LetterC}},
			{Text: "Why are capitals often on rivers?", Body: model.Subjective{
				AnswerGuide: "Trade, transport and water supply."}},
		})
	if err != nil {
		t.Fatalf("seedExam: %v", err)
	}
	return exam, qs
}
