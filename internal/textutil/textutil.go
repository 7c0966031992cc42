// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textutil normalizes upstream text: entity decoding, tag stripping
// and whitespace collapsing.
package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText decodes HTML entities, drops markup and collapses whitespace to
// single spaces.
func CleanText(raw string) string {
	return strings.Join(strings.Fields(plainText(raw)), " ")
}

// CleanMultiline is CleanText that keeps line boundaries, dropping empty
// lines.
func CleanMultiline(raw string) string {
	text := strings.ReplaceAll(plainText(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}

func plainText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	var b strings.Builder
	collectText(doc.Selection, &b)
	return b.String()
}

// collectText writes every text node below s, separated by spaces so that
// adjacent block elements do not run together.
func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
			b.WriteByte(' ')
		case "script", "style", "#comment":
		default:
			collectText(c, b)
		}
	})
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
