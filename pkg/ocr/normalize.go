package ocr

import (
	"regexp"
	"strings"
)

var (
	paragraphRe  = regexp.MustCompile(`\n{2,}`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

// NormalizeText cleans raw OCR output for speech: runs of two or more
// newlines become one paragraph break, remaining single newlines become
// spaces (Tesseract breaks lines wherever the bubble wraps, mid-sentence),
// and whitespace runs are squeezed.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = paragraphRe.ReplaceAllString(text, "\x00")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\x00", "\n\n")

	lines := strings.Split(text, "\n\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n\n"))
}
