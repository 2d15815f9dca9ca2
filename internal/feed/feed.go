// Package feed renders the podcast RSS document.
package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"briefings/internal/config"
	"briefings/internal/episodes"
	"briefings/internal/logging"
)

// DateLayout is the RSS date form, always rendered in UTC.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 +0000"

const (
	itunesNS  = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	contentNS = "http://purl.org/rss/1.0/modules/content/"
)

// Channel holds the feed-level metadata.
type Channel struct {
	Title       string
	Link        string
	Description string
	Language    string
	Author      string
}

// ChannelFromConfig reads channel metadata from the feed section.
func ChannelFromConfig(cfg *config.Config) Channel {
	return Channel{
		Title:       cfg.Feed.Title,
		Link:        cfg.Feed.BaseURL,
		Description: cfg.Feed.Description,
		Language:    cfg.Feed.Language,
		Author:      cfg.Feed.Author,
	}
}

type rssDoc struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	ItunesNS  string     `xml:"xmlns:itunes,attr"`
	ContentNS string     `xml:"xmlns:content,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string         `xml:"title"`
	Link           string         `xml:"link"`
	Description    string         `xml:"description"`
	Language       string         `xml:"language"`
	ItunesAuthor   string         `xml:"itunes:author"`
	ItunesOwner    itunesOwner    `xml:"itunes:owner"`
	ItunesCategory itunesCategory `xml:"itunes:category"`
	ItunesExplicit string         `xml:"itunes:explicit"`
	ItunesType     string         `xml:"itunes:type"`
	LastBuildDate  string         `xml:"lastBuildDate"`
	Items          []rssItem      `xml:"item"`
}

type itunesOwner struct {
	Name string `xml:"itunes:name"`
}

type itunesCategory struct {
	Text string `xml:"text,attr"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Description    string       `xml:"description"`
	Enclosure      rssEnclosure `xml:"enclosure"`
	GUID           rssGUID      `xml:"guid"`
	PubDate        string       `xml:"pubDate"`
	ItunesTitle    string       `xml:"itunes:title"`
	ItunesSummary  string       `xml:"itunes:summary"`
	ItunesExplicit string       `xml:"itunes:explicit"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Render builds the RSS document. Trailers are left out; full episodes are
// listed newest first.
func Render(ch Channel, list []episodes.Episode, now time.Time) ([]byte, error) {
	full := make([]episodes.Episode, 0, len(list))
	for _, ep := range list {
		if !ep.IsTrailer {
			full = append(full, ep)
		}
	}
	sort.SliceStable(full, func(i, j int) bool {
		return full[i].Published.After(full[j].Published)
	})

	items := make([]rssItem, 0, len(full))
	for _, ep := range full {
		url := ch.Link + "/episodes/" + ep.File
		guid := ep.ID
		if guid == "" {
			guid = url
		}
		published := ep.Published
		if published.IsZero() {
			published = now
		}
		items = append(items, rssItem{
			Title:          ep.Title,
			Description:    ep.Description,
			Enclosure:      rssEnclosure{URL: url, Length: ep.FileSize, Type: "audio/mpeg"},
			GUID:           rssGUID{IsPermaLink: "false", Value: guid},
			PubDate:        published.UTC().Format(DateLayout),
			ItunesTitle:    ep.Title,
			ItunesSummary:  ep.Description,
			ItunesExplicit: "no",
		})
	}

	doc := rssDoc{
		Version:   "2.0",
		ItunesNS:  itunesNS,
		ContentNS: contentNS,
		Channel: rssChannel{
			Title:          ch.Title,
			Link:           ch.Link,
			Description:    ch.Description,
			Language:       ch.Language,
			ItunesAuthor:   ch.Author,
			ItunesOwner:    itunesOwner{Name: ch.Author},
			ItunesCategory: itunesCategory{Text: "Business"},
			ItunesExplicit: "no",
			ItunesType:     "episodic",
			LastBuildDate:  now.UTC().Format(DateLayout),
			Items:          items,
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Publisher writes the rendered feed to a file.
type Publisher struct {
	path    string
	channel Channel
	now     func() time.Time
	logger  *slog.Logger
}

// NewPublisher writes to cfg.FeedPath().
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		path:    cfg.FeedPath(),
		channel: ChannelFromConfig(cfg),
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "feed"),
	}
}

// Path is the rendered feed location.
func (p *Publisher) Path() string {
	return p.path
}

// Rebuild renders list and replaces the feed file.
func (p *Publisher) Rebuild(_ context.Context, list []episodes.Episode) error {
	data, err := Render(p.channel, list, p.now())
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".feed-*.xml")
	if err != nil {
		return fmt.Errorf("stage feed: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace feed: %w", err)
	}
	count := 0
	for _, ep := range list {
		if !ep.IsTrailer {
			count++
		}
	}
	p.logger.Info("feed rebuilt", logging.Int("episodes", count))
	return nil
}
