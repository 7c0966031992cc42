// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summary

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/internal/textutil"
)

const unknown = "Unknown"

// Fields are short badges derived from an item's text.
type Fields struct {
	Phase      string `json:"phase" yaml:"phase"`
	StudyType  string `json:"study_type" yaml:"study_type"`
	Endpoints  string `json:"endpoints" yaml:"endpoints"`
	SampleSize string `json:"sample_size" yaml:"sample_size"`
}

// Extract derives all badges from text.
func Extract(text string) Fields {
	t := strings.ToLower(textutil.CleanText(text))
	return Fields{
		Phase:      detectPhase(t),
		StudyType:  detectStudyType(t),
		Endpoints:  detectEndpoints(t),
		SampleSize: detectSampleSize(t),
	}
}

func detectPhase(t string) string {
	switch {
	case strings.Contains(t, "phase iii") || strings.Contains(t, "phase 3"):
		return "Phase III"
	case strings.Contains(t, "phase ii") || strings.Contains(t, "phase 2"):
		return "Phase II"
	case strings.Contains(t, "phase i") || strings.Contains(t, "phase 1"):
		return "Phase I"
	case strings.Contains(t, "phase iv") || strings.Contains(t, "phase 4"):
		return "Phase IV"
	}
	return unknown
}

func detectStudyType(t string) string {
	switch {
	case strings.Contains(t, "meta-analysis") || strings.Contains(t, "systematic review"):
		return "Meta-analysis/Systematic review"
	case strings.Contains(t, "randomized") || strings.Contains(t, "rct"):
		return "Randomized trial"
	case strings.Contains(t, "retrospective"):
		return "Retrospective study"
	case strings.Contains(t, "prospective"):
		return "Prospective study"
	case strings.Contains(t, "single-arm") || strings.Contains(t, "single arm"):
		return "Single-arm study"
	}
	return unknown
}

var endpointLabels = []struct{ needle, label string }{
	{"overall survival", "OS"},
	{"progression-free survival", "PFS"},
	{"objective response rate", "ORR"},
	{"orr", "ORR"},
	{"disease-free survival", "DFS"},
	{"toxicity", "Toxicity"},
	{"adverse event", "Adverse events"},
}

func detectEndpoints(t string) string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range endpointLabels {
		if strings.Contains(t, e.needle) && !seen[e.label] {
			seen[e.label] = true
			out = append(out, e.label)
		}
	}
	if len(out) == 0 {
		return unknown
	}
	return strings.Join(out, ", ")
}

var sampleSizeRe = regexp.MustCompile(`\b(?:n\s*=\s*|enrolled\s*=\s*|patients?\s*=\s*|participants?\s*=\s*)(\d{2,5})\b`)

func detectSampleSize(t string) string {
	best := -1
	for _, m := range sampleSizeRe.FindAllStringSubmatch(t, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	if best < 0 {
		return unknown
	}
	return "N~" + strconv.Itoa(best)
}
