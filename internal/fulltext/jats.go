// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// Sections holds labeled paragraphs from a JATS article.
type Sections struct {
	Abstract   []string `json:"abstract,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Results    []string `json:"results,omitempty"`
	Discussion []string `json:"discussion,omitempty"`
	Conclusion []string `json:"conclusion,omitempty"`
	Captions   []string `json:"captions,omitempty"`
}

const (
	maxAbstractParas = 20
	maxSectionParas  = 20
	maxCaptions      = 20
	maxTextParas     = 15
	sniffParas       = 5

	maxSnippets   = 5
	minSnippetLen = 40
)

// Section buckets are tried in this order against a section's title and
// opening paragraphs.
var buckets = []struct {
	name     string
	keywords []string
}{
	{"methods", []string{"method", "materials", "patients and methods"}},
	{"results", []string{"result", "efficacy"}},
	{"discussion", []string{"discussion"}},
	{"conclusion", []string{"conclusion", "concluding"}},
}

func (s *Sections) bucket(name string) *[]string {
	switch name {
	case "abstract":
		return &s.Abstract
	case "methods":
		return &s.Methods
	case "results":
		return &s.Results
	case "discussion":
		return &s.Discussion
	case "conclusion":
		return &s.Conclusion
	case "captions":
		return &s.Captions
	}
	return nil
}

// Empty reports whether no section has any text.
func (s Sections) Empty() bool {
	return len(s.Abstract)+len(s.Methods)+len(s.Results)+len(s.Discussion)+len(s.Conclusion)+len(s.Captions) == 0
}

// Text joins the first paragraphs of each section in reading order.
func (s Sections) Text() string {
	var parts []string
	for _, sec := range [][]string{s.Abstract, s.Methods, s.Results, s.Discussion, s.Conclusion, s.Captions} {
		parts = append(parts, sec[:min(len(sec), maxTextParas)]...)
	}
	return collapse(strings.Join(parts, " "))
}

// Snippets picks up to five substantial paragraphs, results first.
func (s Sections) Snippets() []string {
	var out []string
	for _, sec := range [][]string{s.Results, s.Conclusion, s.Discussion, s.Methods, s.Abstract, s.Captions} {
		for _, p := range sec {
			if utf8.RuneCountInString(p) < minSnippetLen {
				continue
			}
			out = append(out, p)
			if len(out) == maxSnippets {
				return out
			}
		}
	}
	return out
}

// ParseJATS extracts labeled sections from a JATS XML article.
func ParseJATS(data []byte) (Sections, error) {
	root, err := parseTree(data)
	if err != nil {
		return Sections{}, err
	}

	var s Sections
	for _, abs := range root.findAll("abstract") {
		for _, p := range abs.findAll("p") {
			if t := p.text(); t != "" && len(s.Abstract) < maxAbstractParas {
				s.Abstract = append(s.Abstract, t)
			}
		}
	}

	for _, body := range root.findAll("body") {
		for _, sec := range body.findAll("sec") {
			var blocks []string
			for _, p := range sec.findAll("p") {
				if t := p.text(); t != "" {
					blocks = append(blocks, t)
				}
			}
			if len(blocks) == 0 {
				continue
			}
			title := ""
			if t := sec.child("title"); t != nil {
				title = strings.ToLower(t.text())
			}
			opening := strings.ToLower(strings.Join(blocks[:min(len(blocks), sniffParas)], " "))
			for _, b := range buckets {
				if containsAny(title, b.keywords) || containsAny(opening, b.keywords) {
					dst := s.bucket(b.name)
					*dst = append(*dst, blocks[:min(len(blocks), maxSectionParas)]...)
					break
				}
			}
		}
	}

	captions := append(captionsUnder(root, "fig"), captionsUnder(root, "table-wrap")...)
	for _, c := range captions {
		if len(s.Captions) == maxCaptions {
			break
		}
		s.Captions = append(s.Captions, c)
	}
	return s, nil
}

func captionsUnder(root *node, container string) []string {
	var out []string
	for _, f := range root.findAll(container) {
		for _, c := range f.findAll("caption") {
			if t := c.text(); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// node is a minimal ordered XML tree. Text nodes have an empty name.
type node struct {
	name string
	data string
	kids []*node
}

func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	root := &node{name: "#document"}
	stack := []*node{root}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			top.kids = append(top.kids, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.kids = append(top.kids, &node{data: string(t)})
		}
	}
	return root, nil
}

// findAll returns descendants named name in document order.
func (n *node) findAll(name string) []*node {
	var out []*node
	for _, k := range n.kids {
		if k.name == "" {
			continue
		}
		if k.name == name {
			out = append(out, k)
		}
		out = append(out, k.findAll(name)...)
	}
	return out
}

func (n *node) child(name string) *node {
	for _, k := range n.kids {
		if k.name == name {
			return k
		}
	}
	return nil
}

// text concatenates all descendant text with whitespace collapsed.
func (n *node) text() string {
	var b strings.Builder
	n.writeText(&b)
	return collapse(b.String())
}

func (n *node) writeText(b *strings.Builder) {
	if n.name == "" {
		b.WriteString(n.data)
		b.WriteByte(' ')
		return
	}
	for _, k := range n.kids {
		k.writeText(b)
	}
}
