package local

import (
	"fmt"
	"strings"
)

type Language string

const (
	Eng = Language("en")
	Rus = Language("ru")

	Fallback = Eng
)

// TextSet holds one UI string in several languages. Lookups for a language
// without a translation fall back to English.
type TextSet map[Language]string

// ParseLanguage maps an IETF tag such as "ru-RU" to a Language.
func ParseLanguage(tag string) Language {
	base, _, _ := strings.Cut(strings.ToLower(tag), "-")
	return Language(base)
}

func (s TextSet) Text(language Language) string {
	if text, ok := s[language]; ok {
		return text
	}
	return s[Fallback]
}

func (s TextSet) Format(language Language, a ...any) string {
	return fmt.Sprintf(s.Text(language), a...)
}
