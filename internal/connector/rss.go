// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oncopulse/internal/textutil"
	"github.com/pdiddy/oncopulse/pkg/types"
)

// DefaultJournalFeeds are the table-of-contents feeds read when none are
// configured.
var DefaultJournalFeeds = []string{
	"https://www.nejm.org/rss/current.xml",
	"https://ascopubs.org/action/showFeed?jc=jco&type=etoc&feed=rss",
	"https://www.thelancet.com/rssfeed/lancet_online.xml",
	"https://ashpublications.org/rss/site_1000003/1000003.xml",
}

// JournalRSS reads journal RSS feeds and keeps items mentioning a query
// term. A feed that cannot be fetched or parsed is skipped.
type JournalRSS struct {
	Client *Client
	Feeds  []string
	Logger zerolog.Logger
}

// Name returns the connector identifier.
func (j *JournalRSS) Name() string { return types.SourceJournalRSS }

// Category returns CategoryJournalRSS.
func (j *JournalRSS) Category() Category { return CategoryJournalRSS }

// Search reads every feed in order. Feed items carry no reliable window
// semantics so all current items are considered.
func (j *JournalRSS) Search(ctx context.Context, req Request) ([]types.RawRecord, error) {
	if req.Limit <= 0 {
		return nil, nil
	}
	feeds := j.Feeds
	if len(feeds) == 0 {
		feeds = DefaultJournalFeeds
	}
	terms := Terms(req.Query)

	var out []types.RawRecord
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		body, err := j.Client.Get(ctx, feed, nil, nil)
		if err != nil {
			j.Logger.Debug().Err(err).Str("feed", feed).Msg("skipping feed")
			continue
		}
		items, err := ParseRSS(body)
		if err != nil {
			j.Logger.Debug().Err(err).Str("feed", feed).Msg("skipping unparseable feed")
			continue
		}
		for _, it := range items {
			if !matchesTerms(it.Title+" "+it.Description, terms) {
				continue
			}
			out = append(out, it.record(feed))
			if len(out) >= req.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// RSSItem is one <item> of an RSS 2.0 channel with text fields cleaned.
type RSSItem struct {
	Title       string
	Link        string
	Description string
	PubDate     string
	Source      string
}

type rssDoc struct {
	Items []rssRawItem `xml:"channel>item"`
	// RDF-style feeds place items at the top level.
	TopItems []rssRawItem `xml:"item"`
}

type rssRawItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Source      string `xml:"source"`
}

// ParseRSS extracts items from an RSS 2.0 or RDF feed. Publication dates
// in RFC 1123 form are normalized to YYYY-MM-DD.
func ParseRSS(data []byte) ([]RSSItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var doc rssDoc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	raw := append(doc.Items, doc.TopItems...)
	out := make([]RSSItem, 0, len(raw))
	for _, r := range raw {
		out = append(out, RSSItem{
			Title:       textutil.CleanText(r.Title),
			Link:        strings.TrimSpace(r.Link),
			Description: textutil.CleanText(r.Description),
			PubDate:     rssDate(firstNonEmpty(r.PubDate, r.Date)),
			Source:      textutil.CleanText(r.Source),
		})
	}
	return out, nil
}

var rssDateLayouts = []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700", "Mon, 2 Jan 2006 15:04:05 MST", time.RFC3339}

func rssDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

func (it RSSItem) record(feed string) types.RawRecord {
	return types.RawRecord{
		Source:         types.SourceJournalRSS,
		Title:          firstNonEmpty(it.Title, "Untitled journal item"),
		URL:            firstNonEmpty(it.Link, feed),
		PublishedAt:    it.PubDate,
		Venue:          firstNonEmpty(it.Source, "RSS Journal"),
		AbstractOrText: it.Description,
	}
}
