// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/oncopulse/internal/textutil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// pubmedBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var pubmedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	pubmedPageSize   = 200
	pubmedFetchBatch = 200
	pubmedMaxAuthors = 8
	pubmedDateLayout = "2006/01/02"
)

// PubMed searches PubMed with esearch and hydrates the hits with efetch.
type PubMed struct {
	Client *Client
	APIKey string
	Email  string
	Tool   string
}

// Name returns the connector identifier.
func (p *PubMed) Name() string { return types.SourcePubMed }

// Category returns CategoryPapers.
func (p *PubMed) Category() Category { return CategoryPapers }

// Search returns articles published within the request window.
func (p *PubMed) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if strings.TrimSpace(req.Query) == "" || req.Limit <= 0 {
		return nil, nil
	}

	ids, searchErr := p.searchIDs(ctx, req)
	if len(ids) == 0 {
		return nil, searchErr
	}

	var out []types.RawRecord
	for start := 0; start < len(ids); start += pubmedFetchBatch {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		end := min(start+pubmedFetchBatch, len(ids))
		recs, err := p.fetch(ctx, ids[start:end])
		out = append(out, recs...)
		if err != nil {
			return out, err
		}
	}
	return out, searchErr
}

func (p *PubMed) common() url.Values {
	v := url.Values{"db": {"pubmed"}}
	if p.Tool != "" {
		v.Set("tool", p.Tool)
	}
	if p.Email != "" {
		v.Set("email", p.Email)
	}
	if p.APIKey != "" {
		v.Set("api_key", p.APIKey)
	}
	return v
}

// searchIDs pages through esearch until limit ids are collected or the
// result set is exhausted. Ids gathered before an error are returned with it.
func (p *PubMed) searchIDs(ctx context.Context, req Request) ([]string, error) {
	now := req.now()
	minDate := req.windowStart().Format(pubmedDateLayout)
	maxDate := now.Format(pubmedDateLayout)

	var ids []string
	seen := make(map[string]struct{})
	retstart := 0
	for len(ids) < req.Limit {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		params := p.common()
		params.Set("term", req.Query)
		params.Set("retmode", "json")
		params.Set("retmax", strconv.Itoa(min(pubmedPageSize, req.Limit-len(ids))))
		params.Set("retstart", strconv.Itoa(retstart))
		params.Set("datetype", "pdat")
		params.Set("mindate", minDate)
		params.Set("maxdate", maxDate)
		params.Set("sort", "pub date")

		body, err := p.Client.Get(ctx, pubmedBase+"/esearch.fcgi", params, nil)
		if err != nil {
			return ids, fmt.Errorf("pubmed esearch: %w", err)
		}
		var sr esearchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return ids, fmt.Errorf("parsing esearch response: %w", err)
		}
		page := sr.Result.IDList
		if len(page) == 0 {
			break
		}
		for _, id := range page {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		retstart += len(page)
		count, _ := strconv.Atoi(sr.Result.Count)
		if retstart >= count {
			break
		}
	}
	if len(ids) > req.Limit {
		ids = ids[:req.Limit]
	}
	return ids, nil
}

func (p *PubMed) fetch(ctx context.Context, ids []string) ([]types.RawRecord, error) {
	params := p.common()
	params.Set("retmode", "xml")
	params.Set("id", strings.Join(ids, ","))

	body, err := p.Client.Get(ctx, pubmedBase+"/efetch.fcgi", params, nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}
	return ParsePubMedXML(body)
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// PubMed efetch XML structures.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article *struct {
			Title   markup `xml:"ArticleTitle"`
			Journal struct {
				ISOAbbreviation string     `xml:"ISOAbbreviation"`
				Title           string     `xml:"Title"`
				PubDate         pubmedDate `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			Abstract   []abstractText `xml:"Abstract>AbstractText"`
			Authors    []pubmedAuthor `xml:"AuthorList>Author"`
			ELocations []typedID      `xml:"ELocationID"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	ArticleIDs []typedID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// markup captures an element's inner XML, which may hold inline tags.
type markup struct {
	Inner string `xml:",innerxml"`
}

func (m markup) text() string { return textutil.CleanText(m.Inner) }

type abstractText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

type pubmedAuthor struct {
	LastName       string `xml:"LastName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

type typedID struct {
	EIDType string `xml:"EIdType,attr"`
	IDType  string `xml:"IdType,attr"`
	Value   string `xml:",chardata"`
}

type pubmedDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

var (
	nctRe    = regexp.MustCompile(`\bNCT\d{8}\b`)
	monthMap = map[string]string{
		"jan": "01", "feb": "02", "mar": "03", "apr": "04", "may": "05", "jun": "06",
		"jul": "07", "aug": "08", "sep": "09", "oct": "10", "nov": "11", "dec": "12",
	}
)

// ParsePubMedXML maps an efetch PubmedArticleSet onto records. Articles
// without an Article element are skipped.
func ParsePubMedXML(data []byte) ([]types.RawRecord, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing pubmed XML: %w", err)
	}

	out := make([]types.RawRecord, 0, len(set.Articles))
	for _, a := range set.Articles {
		art := a.Citation.Article
		if art == nil {
			continue
		}
		pmid := strings.TrimSpace(a.Citation.PMID)
		abstract := joinAbstract(art.Abstract)

		r := types.RawRecord{
			Source:         types.SourcePubMed,
			Title:          art.Title.text(),
			PublishedAt:    art.Journal.PubDate.String(),
			PMID:           pmid,
			DOI:            articleDOI(art.ELocations, a.ArticleIDs),
			PMCID:          articleID(a.ArticleIDs, "pmc"),
			NCTID:          nctRe.FindString(abstract),
			Venue:          firstNonEmpty(art.Journal.ISOAbbreviation, art.Journal.Title),
			Authors:        joinAuthors(art.Authors),
			AbstractOrText: abstract,
		}
		if pmid != "" {
			r.URL = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
		}
		out = append(out, r)
	}
	return out, nil
}

func joinAbstract(parts []abstractText) string {
	var out []string
	for _, p := range parts {
		text := textutil.CleanText(p.Inner)
		if text == "" {
			continue
		}
		if p.Label != "" {
			text = p.Label + ": " + text
		}
		out = append(out, text)
	}
	return strings.TrimSpace(strings.Join(out, " "))
}

func joinAuthors(authors []pubmedAuthor) string {
	var names []string
	for _, a := range authors {
		switch {
		case strings.TrimSpace(a.CollectiveName) != "":
			names = append(names, strings.TrimSpace(a.CollectiveName))
		case strings.TrimSpace(a.LastName) != "":
			names = append(names, strings.TrimSpace(strings.TrimSpace(a.LastName)+" "+strings.TrimSpace(a.Initials)))
		}
		if len(names) == pubmedMaxAuthors {
			break
		}
	}
	return strings.Join(names, ", ")
}

func articleDOI(elocs, ids []typedID) string {
	for _, e := range elocs {
		if strings.EqualFold(e.EIDType, "doi") {
			if v := strings.TrimSpace(e.Value); v != "" {
				return v
			}
		}
	}
	return articleID(ids, "doi")
}

func articleID(ids []typedID, kind string) string {
	for _, id := range ids {
		if strings.EqualFold(id.IDType, kind) {
			if v := strings.TrimSpace(id.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// String renders the date as YYYY[-MM[-DD]], falling back to MedlineDate.
func (d pubmedDate) String() string {
	year := strings.TrimSpace(d.Year)
	if year == "" {
		return strings.TrimSpace(d.MedlineDate)
	}
	parts := []string{year}
	if m := normalizeMonth(d.Month); m != "" {
		parts = append(parts, m)
		if day, err := strconv.Atoi(strings.TrimSpace(d.Day)); err == nil && day > 0 {
			parts = append(parts, fmt.Sprintf("%02d", day))
		}
	}
	return strings.Join(parts, "-")
}

func normalizeMonth(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if n, err := strconv.Atoi(m); err == nil {
		if n >= 1 && n <= 12 {
			return fmt.Sprintf("%02d", n)
		}
		return ""
	}
	if len(m) < 3 {
		return ""
	}
	return monthMap[strings.ToLower(m[:3])]
}
