package ocr

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Hello there.", "Hello there."},
		{"single newlines join", "WHAT A\nBEAUTIFUL\nMORNING", "WHAT A BEAUTIFUL MORNING"},
		{"double newline keeps paragraph", "First bubble.\n\nSecond bubble.", "First bubble.\n\nSecond bubble."},
		{"many newlines collapse to one break", "One.\n\n\n\nTwo.", "One.\n\nTwo."},
		{"mixed", "A\nB\n\nC\nD", "A B\n\nC D"},
		{"whitespace runs squeezed", "too   many\t spaces", "too many spaces"},
		{"crlf", "left\r\nright\r\n\r\nnext", "left right\n\nnext"},
		{"surrounding space trimmed", "  \n padded \n ", "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
