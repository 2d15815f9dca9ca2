package script_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"briefings/internal/editorial"
	"briefings/internal/script"
)

type scripted struct {
	replies []string
	errs    []error
	search  []bool
}

func (s *scripted) Complete(_ context.Context, _ string, maxTokens int, webSearch bool) (string, error) {
	i := len(s.search)
	s.search = append(s.search, webSearch)
	if maxTokens != 4000 {
		return "", errors.New("unexpected max tokens")
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("no reply")
}

var topic = editorial.Topic{
	Title:        "Moats Moved",
	Tension:      "Data stopped being the edge.",
	SubQuestions: []string{"Q one?"},
}

func TestMinSegments(t *testing.T) {
	cases := map[string]int{"executive": 10, "standard": 16, "deep": 24, "": 16, "epic": 16, "Deep": 24}
	for depth, want := range cases {
		if got := script.MinSegments(depth); got != want {
			t.Errorf("MinSegments(%q) = %d, want %d", depth, got, want)
		}
	}
}

func TestPromptStructureBounds(t *testing.T) {
	cases := []struct {
		depth string
		want  string
	}{
		{"executive", "each section gets 2-3 segments"},
		{"standard", "each section gets 2-4 segments"},
		{"deep", "each section gets 4-6 segments"},
	}
	for _, tc := range cases {
		prompt, err := script.Prompt(topic, tc.depth, "")
		if err != nil {
			t.Fatalf("Prompt: %v", err)
		}
		if !strings.Contains(prompt, tc.want) {
			t.Errorf("%s prompt missing %q", tc.depth, tc.want)
		}
		if strings.Contains(prompt, "PRODUCTION BRIEF") {
			t.Errorf("%s prompt should omit empty brief", tc.depth)
		}
	}
	prompt, err := script.Prompt(topic, "standard", "Lean on distributor data.")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if !strings.Contains(prompt, "PRODUCTION BRIEF:\nLean on distributor data.\n") {
		t.Fatalf("brief missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "KEY QUESTIONS: Q one?\n") {
		t.Fatal("sub-questions missing from prompt")
	}
}

func TestEpisodeParsesSegmentsAndSources(t *testing.T) {
	reply := "```json\n[{\"host\":\"Alex\",\"text\":\"one\"},{\"host\":\"Morgan\",\"text\":\"two\"}]\n```\nSOURCES: Gartner, , HBR"
	completer := &scripted{replies: []string{reply}}
	synth := script.NewSynthesizer(completer, nil)

	got := synth.Episode(context.Background(), topic, "standard", "")
	if len(got.Segments) != 2 || got.Segments[1].Host != "Morgan" {
		t.Fatalf("unexpected segments %+v", got.Segments)
	}
	if len(got.Sources) != 2 || got.Sources[0] != "Gartner" || got.Sources[1] != "HBR" {
		t.Fatalf("unexpected sources %v", got.Sources)
	}
	if len(completer.search) != 1 || !completer.search[0] {
		t.Fatalf("expected a single search call, got %v", completer.search)
	}
}

func TestEpisodeFallsBackToPlainThenTemplate(t *testing.T) {
	boom := errors.New("unavailable")

	plain := &scripted{errs: []error{boom}, replies: []string{"", `[{"host":"Alex","text":"plain"}]`}}
	got := script.NewSynthesizer(plain, nil).Episode(context.Background(), topic, "deep", "")
	if len(got.Segments) != 1 || got.Segments[0].Text != "plain" {
		t.Fatalf("expected plain reply, got %+v", got.Segments)
	}
	if len(plain.search) != 2 || plain.search[1] {
		t.Fatalf("expected search then plain, got %v", plain.search)
	}

	failing := &scripted{errs: []error{boom, boom}}
	got = script.NewSynthesizer(failing, nil).Episode(context.Background(), topic, "deep", "")
	if len(got.Segments) != 12 {
		t.Fatalf("expected twelve fallback segments, got %d", len(got.Segments))
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Fatalf("fallback sources should be empty, got %v", got.Sources)
	}

	garbled := &scripted{replies: []string{"I cannot help with that."}}
	got = script.NewSynthesizer(garbled, nil).Episode(context.Background(), topic, "executive", "")
	if len(got.Segments) != 12 {
		t.Fatalf("unparsable reply should fall back, got %d segments", len(got.Segments))
	}
}

func TestFallbackUsesTopicAndDefaults(t *testing.T) {
	segments := script.Fallback(topic)
	if len(segments) != 12 {
		t.Fatalf("expected 12 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		want := script.HostAlex
		if i%2 == 1 {
			want = script.HostMorgan
		}
		if seg.Host != want {
			t.Fatalf("segment %d host = %s, want %s", i, seg.Host, want)
		}
	}
	if !strings.Contains(segments[0].Text, "Moats Moved.") {
		t.Fatalf("title missing from cold open: %s", segments[0].Text)
	}
	if !strings.Contains(segments[1].Text, "this: Data stopped being the edge. That's") {
		t.Fatalf("tension missing: %s", segments[1].Text)
	}
	if !strings.Contains(segments[2].Text, "allocate capital and talent.") {
		t.Fatal("default why-it-matters missing")
	}
	if !strings.Contains(segments[6].Text, "Q one?") {
		t.Fatal("first sub-question missing")
	}
	if !strings.Contains(segments[7].Text, "24-month shelf life") {
		t.Fatal("default second question missing")
	}
}

func TestTrailer(t *testing.T) {
	got := script.Trailer(editorial.Topic{Title: "Moats", Tension: "tension", TrailerHook: "A hook."})
	if len(got.Segments) != 2 {
		t.Fatalf("expected two lines, got %d", len(got.Segments))
	}
	if got.Segments[0].Text != "A hook." || got.Segments[1].Host != script.HostAlex {
		t.Fatalf("unexpected trailer %+v", got.Segments)
	}
	if got.Segments[1].Text != "For the full briefing on Moats, hit Generate Briefing. I'm Alex." {
		t.Fatalf("unexpected close %q", got.Segments[1].Text)
	}
	if noHook := script.Trailer(editorial.Topic{Title: "X", Tension: "tension"}); noHook.Segments[0].Text != "tension" {
		t.Fatal("trailer should open with the tension when no hook exists")
	}
}
