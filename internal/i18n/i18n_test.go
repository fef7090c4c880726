package i18n

import (
	"context"
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

	got := T(ctx, "ExamNotFound")
	if got != "Exam not found." {
		t.Errorf("T(ExamNotFound) = %q, want 'Exam not found.'", got)
	}

	got = T(ctx, "LoginError")
	if got != "Wrong username or password." {
		t.Errorf("T(LoginError) = %q, want 'Wrong username or password.'", got)
	}
}

func TestTranslateUzbek(t *testing.T) {
	ctx := initLang(t, "uz")

	got := T(ctx, "ExamNotFound")
	if got != "Imtihon topilmadi." {
		t.Errorf("T(ExamNotFound) = %q, want 'Imtihon topilmadi.'", got)
	}

	got = T(ctx, "ParseFailed")
	if got != "Matnni tahlil qilib bo'lmadi. Iltimos formatni tekshiring." {
		t.Errorf("T(ParseFailed) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsParsed", 1)
	if got1 != "1 question detected." {
		t.Errorf("Tp(QuestionsParsed, 1) = %q, want '1 question detected.'", got1)
	}

	got5 := Tp(ctx, "QuestionsParsed", 5)
	if got5 != "5 questions detected." {
		t.Errorf("Tp(QuestionsParsed, 5) = %q, want '5 questions detected.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "SessionStarted", map[string]any{"Code": "483920"})
	if got != "Exam started. Join code: 483920" {
		t.Errorf("Td(SessionStarted, Code=483920) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
