package exam

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pavelanni/assessor/internal/model"
)

var (
	optionWordRegex = regexp.MustCompile(`(?i)^option\s*[\(\[]?([a-d])[\)\]]?$`)
	letterFormRegex = regexp.MustCompile(`(?i)^(?:option\s*)?[\(\[]?([a-d])[\)\]\.:]?$`)
)

// Normalize maps a free-form selection to an option letter.
// It reports false for blank or ambiguous input.
//
// A leading A-D counts only when it stands alone ("B", "b)", "C. Paris"),
// so words that merely start with those letters ("Cherry") are not letters.
func Normalize(raw string) (model.Letter, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	runes := []rune(s)
	first := unicode.ToUpper(runes[0])
	if first >= 'A' && first <= 'D' && (len(runes) == 1 || !unicode.IsLetter(runes[1])) {
		return model.Letter(first), true
	}
	if m := optionWordRegex.FindStringSubmatch(s); m != nil {
		return model.Letter(strings.ToUpper(m[1])), true
	}
	return "", false
}

// Resolve normalizes a submitted selection for mc. When the selection is not
// a letter it is matched case-insensitively against the option texts.
func Resolve(raw string, mc model.MultipleChoice) (model.Letter, bool) {
	if l, ok := Normalize(raw); ok {
		return l, true
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for i, opt := range mc.Options {
		if strings.EqualFold(strings.TrimSpace(opt), s) {
			return model.Letters[i], true
		}
	}
	return "", false
}

// isLetterForm reports whether s is nothing but an option label,
// as opposed to answer text that happens to begin with one.
func isLetterForm(s string) (model.Letter, bool) {
	m := letterFormRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return model.Letter(strings.ToUpper(m[1])), true
}
