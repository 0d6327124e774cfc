package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reControl    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	rePhoneJunk  = regexp.MustCompile(`[^\d+]`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func collapseWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, " ")
}

func stripControl(s string) string {
	return reControl.ReplaceAllString(s, "")
}

// Name normalizes human-entered names and subjects: trimmed, control
// characters removed, runs of whitespace collapsed.
func Name(input string) string {
	p := Pipeline{stripControl, trim, collapseWhitespace}
	return p.Apply(input)
}

// Email lowercases and trims; format validation stays in the validators.
func Email(input string) string {
	p := Pipeline{stripControl, trim, strings.ToLower}
	return p.Apply(input)
}

// Phone keeps digits and a leading plus sign.
func Phone(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	plus := strings.HasPrefix(s, "+")
	s = rePhoneJunk.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "+", "")
	if plus {
		return "+" + s
	}
	return s
}

// Text cleans free-form fields (notes, messages) without collapsing the
// user's own line breaks.
func Text(input string) string {
	p := Pipeline{stripControl, trim}
	return p.Apply(input)
}
