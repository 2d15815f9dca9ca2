package editorial

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"briefings/internal/engagement"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var prompts = template.Must(
	template.New("editorial").
		Option("missingkey=zero").
		Funcs(template.FuncMap{"bullets": bullets}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// emptyBlock stands in for a list with no entries.
const emptyBlock = "None yet."

func bullets(items []string) string {
	if len(items) == 0 {
		return emptyBlock
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Signals carries what has already been covered and how the listener
// reacted to it.
type Signals struct {
	Exclusions   []string
	SeriesTitles []string
	Engagement   engagement.Summary
}

type signalsView struct {
	Exclusions   []string
	SeriesTitles []string
	Strong       []string
	Moderate     []string
	Dismissed    []string
}

func (s Signals) view() signalsView {
	return signalsView{
		Exclusions:   s.Exclusions,
		SeriesTitles: s.SeriesTitles,
		Strong:       s.Engagement.StrongInterest,
		Moderate:     s.Engagement.ModerateInterest,
		Dismissed:    s.Engagement.Dismissed,
	}
}

// Exclusions merges title lists, dropping blanks and repeats. First
// occurrence wins the position.
func Exclusions(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, title := range list {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, title)
		}
	}
	return out
}

// Seed is the starting point of a series outline: either a picked topic or
// free text.
type Seed struct {
	Topic  *Topic
	Prompt string
}

func (s Seed) String() string {
	if s.Topic != nil {
		return "TOPIC: " + s.Topic.Title + "\nTENSION: " + s.Topic.Tension
	}
	return "PROMPT/SOURCE: " + s.Prompt
}

// Title is the series title derived from the seed.
func (s Seed) Title() string {
	if s.Topic != nil && strings.TrimSpace(s.Topic.Title) != "" {
		return s.Topic.Title
	}
	runes := []rune(s.Prompt)
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

func topicsPrompt(intelBlock string) (string, error) {
	return render("topics", struct{ Intel string }{intelBlock})
}

func suggestionsPrompt(s Signals) (string, error) {
	return render("suggestions", s.view())
}

func trailersPrompt(s Signals) (string, error) {
	return render("trailers", s.view())
}

func outlinePrompt(seed Seed, episodes int) (string, error) {
	return render("outline", struct {
		Seed        string
		Episodes    int
		Penultimate string
	}{seed.String(), episodes, strconv.Itoa(episodes - 1)})
}

func chatPrompt(message string, existing []Topic) (string, error) {
	return render("chat", struct {
		Message  string
		Existing []Topic
	}{message, existing})
}

func autoqueuePrompt(intelBlock string) (string, error) {
	return render("autoqueue", struct{ Intel string }{intelBlock})
}
