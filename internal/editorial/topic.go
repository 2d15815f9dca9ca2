package editorial

import "strings"

// Topic is one editorial candidate. Generated topics are never mutated after
// they are returned; callers copy before adjusting a title.
type Topic struct {
	Rank                int      `json:"rank,omitempty"`
	Title               string   `json:"title"`
	Tension             string   `json:"tension"`
	WhyItMatters        string   `json:"why_it_matters,omitempty"`
	CommonMistake       string   `json:"common_mistake,omitempty"`
	SubQuestions        []string `json:"sub_questions,omitempty"`
	TrailerHook         string   `json:"trailer_hook,omitempty"`
	ProductionBrief     string   `json:"production_brief,omitempty"`
	EpisodeNumber       int      `json:"episode_number,omitempty"`
	SeriesContext       string   `json:"series_context,omitempty"`
	ConfidenceScore     float64  `json:"confidence_score,omitempty"`
	ConfidenceRationale string   `json:"confidence_rationale,omitempty"`
	Freshness           string   `json:"freshness,omitempty"`
}

// FromTitle builds a minimal topic for a bare title. The hook defaults to
// the title.
func FromTitle(title, hook string) Topic {
	title = strings.TrimSpace(title)
	hook = strings.TrimSpace(hook)
	if hook == "" {
		hook = title
	}
	return Topic{Title: title, Tension: title, SubQuestions: []string{}, TrailerHook: hook}
}

// Hook returns the trailer hook, or the tension when no hook was written.
func (t Topic) Hook() string {
	if strings.TrimSpace(t.TrailerHook) != "" {
		return t.TrailerHook
	}
	return t.Tension
}

// Titles lists the titles of topics in order.
func Titles(topics []Topic) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		out = append(out, t.Title)
	}
	return out
}
