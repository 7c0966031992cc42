// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oncopulse/pkg/types"
)

func intPtr(n int) *int { return &n }

func sampleItems() []types.Item {
	return []types.Item{
		{
			RawRecord: types.RawRecord{
				Source:         types.SourcePubMed,
				Title:          "Pembrolizumab versus chemotherapy in advanced NSCLC",
				PublishedAt:    "2026-02-20",
				PMID:           "12345",
				DOI:            "10.1056/nejm123",
				Venue:          "N Engl J Med",
				Authors:        "Smith J, Doe AB, Lung Cancer Group",
				AbstractOrText: "A randomized phase 3 trial enrolling n = 450 patients.",
			},
			ID:           1,
			Fingerprint:  "doi:10.1056/nejm123",
			Score:        12,
			ScoreExplain: []string{"+5 phase III", "+4 randomized/RCT"},
			Citations:    intPtr(17),
			SummaryText:  "Study type / phase: Randomized, phase III",
			Starred:      true,
			Note:         "discuss at tumor board",
		},
		{
			RawRecord: types.RawRecord{
				Source:    types.SourceClinicalTrials,
				Title:     "A Study of Drug X",
				UpdatedAt: "2026-01-05",
				NCTID:     "NCT01234567",
				Phase:     "PHASE2",
			},
			ID:          2,
			Fingerprint: "nct:nct01234567",
			Score:       3,
		},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleItems(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Score")
	assert.Contains(t, out, "* Pembrolizumab versus chemotherapy")
	assert.Contains(t, out, "Phase III, Randomized trial")
	assert.Contains(t, out, "PHASE2")
	assert.Contains(t, out, "2 items")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, &buf)
	assert.Equal(t, "No items found.\n", buf.String())
}

func TestFormatDetail(t *testing.T) {
	var buf bytes.Buffer
	FormatDetail(sampleItems()[0], &buf)
	out := buf.String()

	assert.Contains(t, out, "Citations:   17")
	assert.Contains(t, out, "[+5 phase III; +4 randomized/RCT]")
	assert.Contains(t, out, "Study type / phase:")
	assert.Contains(t, out, "Starred")
	assert.Contains(t, out, "discuss at tumor board")
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(nil, &buf))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, FormatJSON(sampleItems(), &buf))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "12345", decoded[0]["pmid"])
}

func TestFormatCSL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatCSL(sampleItems(), &buf))

	var decoded []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	paper := decoded[0]
	assert.Equal(t, "10.1056/nejm123", paper.ID)
	assert.Equal(t, "article-journal", paper.Type)
	assert.Equal(t, "N Engl J Med", paper.ContainerTitle)
	require.NotNil(t, paper.Issued)
	assert.Equal(t, [][]int{{2026, 2, 20}}, paper.Issued.DateParts)
	assert.Equal(t, []CSLName{
		{Family: "Smith", Given: "J"},
		{Family: "Doe", Given: "AB"},
		{Given: "Lung Cancer", Family: "Group"},
	}, paper.Author)

	trial := decoded[1]
	assert.Equal(t, "NCT01234567", trial.ID)
	assert.Equal(t, "report", trial.Type)
	assert.Equal(t, "ClinicalTrials.gov: NCT01234567", trial.Note)
}

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Smith J", CSLName{Family: "Smith", Given: "J"}},
		{"Smith, Jane", CSLName{Family: "Smith", Given: "Jane"}},
		{"Jane Smith", CSLName{Given: "Jane", Family: "Smith"}},
		{"Plato", CSLName{Literal: "Plato"}},
		{"", CSLName{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAuthorName(tt.in))
		})
	}
}

func TestSplitAuthors(t *testing.T) {
	assert.Equal(t, []string{"Smith, J.", "Doe, A."}, splitAuthors("Smith, J.; Doe, A."))
	assert.Equal(t, []string{"Smith J", "Doe A"}, splitAuthors("Smith J, Doe A"))
	assert.Nil(t, splitAuthors(""))
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
