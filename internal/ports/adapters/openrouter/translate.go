package openrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/forPelevin/clipforge/internal/langcode"
)

// Translate renders text from source to target. Codes are shown to the model
// as English language names.
func (a *Adapter) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if langcode.Base(source) != "" && langcode.Base(source) == langcode.Base(target) {
		return text, nil
	}
	out, err := a.complete(ctx, translatePrompt(text, source, target), false)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return out, nil
}

func translatePrompt(text, source, target string) string {
	src := langcode.Name(source)
	if src == "" {
		src = "the source language"
	}
	return fmt.Sprintf("Translate the following %s text to %s.\n"+
		"Provide only the translation without any additional text or explanation.\n\n"+
		"Text to translate: %s", src, langcode.Name(target), text)
}
