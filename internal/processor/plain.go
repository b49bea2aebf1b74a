package processor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTag    = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlScript = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

func extractPlain(content []byte) ([]segment, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("not valid UTF-8")
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, nil
	}
	return []segment{{text: text}}, nil
}

// extractHTML strips script, style, and markup tags and keeps the text.
func extractHTML(content []byte) ([]segment, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("not valid UTF-8")
	}
	text := htmlScript.ReplaceAllString(string(content), " ")
	text = htmlTag.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []segment{{text: text}}, nil
}
