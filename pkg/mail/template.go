package mail

import (
	"fmt"
	"html"
	"strings"
)

type tone string

const (
	toneSuccess tone = "success"
	toneError   tone = "error"
	toneInfo    tone = "info"
	toneWarning tone = "warning"
)

var toneColors = map[tone]string{
	toneSuccess: "#4CAF50",
	toneError:   "#F44336",
	toneInfo:    "#2196F3",
	toneWarning: "#FF9800",
}

type templateOptions struct {
	tone       tone
	actionURL  string
	actionText string
}

// renderToast builds the banner-style HTML body used by every message kind.
// User-supplied values must be escaped by the caller before interpolation
// into the message string.
func renderToast(title, message string, opts templateOptions) string {
	color, ok := toneColors[opts.tone]
	if !ok {
		color = toneColors[toneInfo]
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 20px auto; padding: 20px; border-radius: 8px; background-color: #f9f9f9;">`)
	fmt.Fprintf(&b, `<div style="padding: 15px; margin-bottom: 15px; border-radius: 6px; background-color: %s; color: white; font-weight: bold;">%s</div>`,
		color, html.EscapeString(title))
	fmt.Fprintf(&b, `<div style="padding: 0 15px 15px; color: #333;"><p>%s</p>`, message)
	if opts.actionURL != "" {
		text := opts.actionText
		if text == "" {
			text = "Take Action"
		}
		fmt.Fprintf(&b, `<a href="%s" style="display: inline-block; padding: 10px 20px; margin-top: 10px; background-color: %s; color: white; text-decoration: none; border-radius: 4px;">%s</a>`,
			html.EscapeString(opts.actionURL), color, html.EscapeString(text))
	}
	b.WriteString(`</div>`)
	b.WriteString(`<div style="margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; text-align: center; font-size: 12px; color: #777;"><p>If you didn't request this, please ignore this email.</p></div>`)
	b.WriteString(`</div>`)
	return b.String()
}

// renderText is the plain-text rendering that pairs with renderToast.
func renderText(title, message string, opts templateOptions) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(message)
	if opts.actionURL != "" {
		b.WriteString("\n\n")
		b.WriteString(opts.actionURL)
	}
	b.WriteString("\n")
	return b.String()
}

// firstName mirrors the greeting convention: first whitespace-separated
// token of the stored name.
func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
