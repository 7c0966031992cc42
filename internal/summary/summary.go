// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary builds the fixed seven-line synopsis stored with each item.
// Every line is extracted from the source text; anything that would need a
// numeric claim the text does not state plainly is reported as not stated.
package summary

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/oncopulse/internal/scoring"
	"github.com/pdiddy/oncopulse/internal/textutil"
)

const (
	notStated     = "Not stated"
	noFinding     = "Not explicitly stated in provided text"
	noAbstract    = "No abstract available"
	notAvailable  = "Not available"
	noInfoWhy     = "Why it matters: Not enough info in abstract."
	maxSnippets   = 3
	maxWhySignals = 2
)

// Input is the text a summary is drawn from. FullText wins over Abstract
// when both are present.
type Input struct {
	Abstract string
	FullText string
	Status   string
	Snippets []string
}

var (
	numericRe = regexp.MustCompile(`\b\d+(?:\.\d+)?%?\b`)

	populationRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(patients?[^.]{0,180}\.)`),
		regexp.MustCompile(`(?i)(adults?[^.]{0,180}\.)`),
		regexp.MustCompile(`(?i)((?:men|women)[^.]{0,180}\.)`),
		regexp.MustCompile(`(?i)((?:participants|subjects)[^.]{0,180}\.)`),
	}
	comparatorRe = regexp.MustCompile(`(?i)([^.]{0,120}(?:compared with|versus|vs\.?)[^.]{0,120}\.)`)
	receivedRe   = regexp.MustCompile(`(?i)(received[^.]{0,140}\.)`)

	findingCues = []string{
		"significant",
		"improved",
		"reduced",
		"increased",
		"no difference",
		"met primary endpoint",
		"superior",
		"non-inferior",
		"did not meet",
	}
	safetyTerms = []string{"toxicity", "adverse event", "adverse events", "pneumonitis", "safety"}

	// Prescriptive phrasing is stripped from the rationale line.
	bannedPhrases = regexp.MustCompile(`(?i)should use|preferred regimen|must use|recommend using|first-line choice|best treatment`)

	endpointTokens = []string{"overall survival", "os", "progression-free survival", "pfs", "orr", "toxicity", "adverse event"}
)

// Summarize renders the synopsis.
func Summarize(in Input) string {
	text := textutil.CleanText(in.FullText)
	if text == "" {
		text = textutil.CleanText(in.Abstract)
	}
	if text == "" {
		return render(notStated, notStated, notStated, notStated, noAbstract, notAvailable, noInfoWhy)
	}

	study := StudyLabel(text)
	population := Population(text)
	comparator := Comparator(text)
	endpoints := Endpoints(text)
	finding := KeyFinding(text)
	why := whyItMatters(in.Status, study, endpoints, population, finding, text)

	var snippets []string
	for _, s := range in.Snippets {
		if s = textutil.CleanText(s); s != "" {
			snippets = append(snippets, s)
		}
		if len(snippets) == maxSnippets {
			break
		}
	}
	support := notAvailable
	if len(snippets) > 0 {
		support = strings.Join(snippets, " | ")
	}
	return render(study, population, comparator, endpoints, finding, support, why)
}

func render(study, population, comparator, endpoints, finding, support, why string) string {
	return strings.Join([]string{
		"Study type / phase: " + study,
		"Population: " + population,
		"Intervention vs comparator: " + comparator,
		"Endpoints mentioned: " + endpoints,
		"Key finding: " + finding,
		"Supporting snippets: " + support,
		why,
	}, "\n")
}

func hasNumeric(s string) bool { return numericRe.MatchString(s) }

// withoutNumbers rejects candidates that carry numeric claims.
func withoutNumbers(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if hasNumeric(candidate) {
		return notStated
	}
	return candidate
}

// StudyLabel names the design signalled by the text.
func StudyLabel(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "meta-analysis") || strings.Contains(t, "systematic review"):
		return "Meta-analysis / systematic review"
	case strings.Contains(t, "randomized") || strings.Contains(t, "rct"):
		return "Randomized trial"
	case strings.Contains(t, "phase iii") || strings.Contains(t, "phase 3"):
		return "Phase III trial"
	case strings.Contains(t, "phase ii") || strings.Contains(t, "phase 2"):
		return "Phase II trial"
	}
	return notStated
}

// Population returns the first sentence fragment describing who was
// studied.
func Population(text string) string {
	for _, re := range populationRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return withoutNumbers(m[1])
		}
	}
	return notStated
}

// Comparator returns the fragment naming the intervention and its
// comparator.
func Comparator(text string) string {
	for _, re := range []*regexp.Regexp{comparatorRe, receivedRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			return withoutNumbers(m[1])
		}
	}
	return notStated
}

// Endpoints lists endpoint terms mentioned in the text, sorted. Short
// abbreviations match whole words only.
func Endpoints(text string) string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range endpointTokens {
		if !scoring.ContainsTerm(lower, tok) {
			continue
		}
		label := tok
		switch tok {
		case "os", "pfs", "orr":
			label = strings.ToUpper(tok)
		}
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	if len(out) == 0 {
		return notStated
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// KeyFinding returns the first sentence with a directional result cue.
func KeyFinding(text string) string {
	for _, s := range Sentences(text) {
		ls := strings.ToLower(s)
		for _, cue := range findingCues {
			if strings.Contains(ls, cue) {
				if hasNumeric(s) {
					return noFinding
				}
				return strings.TrimSpace(s)
			}
		}
	}
	return noFinding
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	var (
		out   []string
		start int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		out = append(out, text[start:i+1])
		start = j
		i = j - 1
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func whyItMatters(status, study, endpoints, population, finding, text string) string {
	var signals []string
	if study != notStated {
		signals = append(signals, "Study signal: "+strings.ToLower(study)+".")
	}
	if endpoints != notStated {
		signals = append(signals, "Reported endpoints include "+endpoints+".")
	}
	if population != notStated {
		signals = append(signals, "Population is described in the abstract.")
	}
	if s := textutil.CleanText(status); s != "" {
		signals = append(signals, "Trial status update: "+s+".")
	}
	lower := strings.ToLower(text)
	for _, term := range safetyTerms {
		if strings.Contains(lower, term) {
			signals = append(signals, "Safety-related language is present and may affect monitoring context.")
			break
		}
	}
	if finding != noFinding {
		signals = append(signals, "The abstract reports a directional result that may guide evidence tracking.")
	}
	if len(signals) == 0 {
		return noInfoWhy
	}

	why := "Why it matters: " + strings.Join(signals[:min(len(signals), maxWhySignals)], " ")
	why = strings.Join(strings.Fields(bannedPhrases.ReplaceAllString(why, " ")), " ")
	if why == "" || strings.EqualFold(why, "why it matters:") {
		return noInfoWhy
	}
	return why
}
