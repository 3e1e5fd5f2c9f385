package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ErrAlreadyAttempted")
	if got != "You have already taken this exam. It cannot be retaken." {
		t.Errorf("T(ErrAlreadyAttempted) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "ErrEssayRequired")
	if got != "Необходимо указать текст эссе." {
		t.Errorf("T(ErrEssayRequired) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsGenerated", 1); got != "1 question generated." {
		t.Errorf("Tp(QuestionsGenerated, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsGenerated", 5); got != "5 questions generated." {
		t.Errorf("Tp(QuestionsGenerated, 5) = %q", got)
	}

	ru := initLang(t, "ru")
	tests := []struct {
		count int
		want  string
	}{
		{1, "Создан 1 вопрос."},
		{3, "Создано 3 вопроса."},
		{5, "Создано 5 вопросов."},
	}
	for _, tt := range tests {
		if got := Tp(ru, "QuestionsGenerated", tt.count); got != tt.want {
			t.Errorf("Tp(QuestionsGenerated, %d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ErrExamNotFound", map[string]any{"ID": 42})
	if got != "Exam #42 was not found." {
		t.Errorf("Td(ErrExamNotFound, ID=42) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestContextWithoutLocalizer(t *testing.T) {
	initLang(t, "ru")
	if got := T(context.Background(), "ErrInternal"); got != "Something went wrong. Please try again later." {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestMiddlewarePrefersAcceptLanguage(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrNoAnswers")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Нужен хотя бы один ответ." {
		t.Errorf("with Accept-Language ru: %q", got)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "At least one answer is required." {
		t.Errorf("without Accept-Language: %q", got)
	}
}
