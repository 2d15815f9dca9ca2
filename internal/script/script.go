// Package script writes two-host episode scripts.
//
// Full episodes come from the generation service, searched first and plain
// second. When both attempts fail, or the reply cannot be parsed, a fixed
// twelve-segment script is built from the topic so production still
// completes. Trailers never call out.
package script

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"briefings/internal/editorial"
	"briefings/internal/logging"
	"briefings/internal/services/llm"
)

// Hosts. Any host other than Alex is voiced by the second speaker.
const (
	HostAlex   = "Alex"
	HostMorgan = "Morgan"
)

// Depths.
const (
	DepthExecutive = "executive"
	DepthStandard  = "standard"
	DepthDeep      = "deep"
)

const episodeMaxTokens = 4000

//go:embed templates/episode.tmpl
var templateFS embed.FS

var episodeTemplate = template.Must(
	template.New("episode.tmpl").
		Option("missingkey=zero").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/episode.tmpl"),
)

// Segment is one spoken turn.
type Segment struct {
	Host string `json:"host"`
	Text string `json:"text"`
}

// Script is an ordered list of turns plus the sources the model cited.
type Script struct {
	Segments []Segment `json:"segments"`
	Sources  []string  `json:"sources"`
}

// MinSegments returns the minimum segment count requested for depth.
func MinSegments(depth string) int {
	switch strings.ToLower(strings.TrimSpace(depth)) {
	case DepthExecutive:
		return 10
	case DepthDeep:
		return 24
	default:
		return 16
	}
}

// Synthesizer writes scripts through the generation service.
type Synthesizer struct {
	llm    llm.Completer
	logger *slog.Logger
}

// NewSynthesizer wires a synthesizer.
func NewSynthesizer(completer llm.Completer, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{llm: completer, logger: logging.NewComponentLogger(logger, "script")}
}

// Episode writes a full episode script. It always returns a usable script.
func (s *Synthesizer) Episode(ctx context.Context, topic editorial.Topic, depth, brief string) Script {
	logger := logging.WithContext(ctx, s.logger)
	script, err := s.generate(ctx, logger, topic, depth, brief)
	if err != nil {
		logging.WarnWithContext(logger, "script generation failed; using local template", "script.fallback",
			logging.String("title", topic.Title),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode uses the built-in twelve-segment script"),
		)
		return Script{Segments: Fallback(topic), Sources: []string{}}
	}
	logger.Info("script generated",
		logging.Int("segments", len(script.Segments)),
		logging.Int("sources", len(script.Sources)),
	)
	return script
}

func (s *Synthesizer) generate(ctx context.Context, logger *slog.Logger, topic editorial.Topic, depth, brief string) (Script, error) {
	if s.llm == nil {
		return Script{}, errors.New("generation service not wired")
	}
	prompt, err := Prompt(topic, depth, brief)
	if err != nil {
		return Script{}, err
	}
	text, searchErr, err := llm.CompleteSearchFirst(ctx, s.llm, prompt, episodeMaxTokens)
	if searchErr != nil && err == nil {
		logging.WarnWithContext(logger, "web search call failed; used plain generation", "script.search_fallback",
			logging.Error(searchErr),
			logging.String(logging.FieldImpact, "script is not grounded in live search"),
		)
	}
	if err != nil {
		return Script{}, err
	}
	return Parse(text)
}

// Parse splits a model reply into segments and sources.
func Parse(text string) (Script, error) {
	body, sources := llm.SplitSources(text)
	var segments []Segment
	if err := llm.DecodeJSONArray(body, &segments); err != nil {
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if len(segments) == 0 {
		return Script{}, errors.New("parse script: no segments")
	}
	return Script{Segments: segments, Sources: sources}, nil
}

// Prompt renders the episode prompt for topic at depth.
func Prompt(topic editorial.Topic, depth, brief string) (string, error) {
	minimum := MinSegments(depth)
	data := struct {
		Topic       editorial.Topic
		Brief       string
		MinSegments int
		SectionMin  int
		SectionMax  int
	}{
		Topic:       topic,
		Brief:       strings.TrimSpace(brief),
		MinSegments: minimum,
		SectionMin:  max(2, minimum/6),
		SectionMax:  max(3, minimum/4),
	}
	var buf bytes.Buffer
	if err := episodeTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render script prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Trailer returns the two-line teaser script for topic.
func Trailer(topic editorial.Topic) Script {
	return Script{
		Segments: []Segment{
			{Host: HostAlex, Text: topic.Hook()},
			{Host: HostAlex, Text: "For the full briefing on " + topic.Title + ", hit Generate Briefing. I'm Alex."},
		},
		Sources: []string{},
	}
}
