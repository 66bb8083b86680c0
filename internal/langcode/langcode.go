// Package langcode normalizes BCP 47 style language codes such as "ta-IN".
package langcode

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Base reduces a code to its base language: "ta-IN" -> "ta". Codes the tag
// parser rejects are split on the first separator instead.
func Base(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if tag, err := language.Parse(code); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	head, _, _ := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-")
	return strings.ToLower(head)
}

// Name returns the English display name of code, or the code itself when it
// is unknown.
func Name(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return code
}

// Tag parses code for language-sensitive text operations, falling back to
// the undetermined tag.
func Tag(code string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return language.Und
	}
	return tag
}
