package editorial

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"briefings/internal/logging"
	"briefings/internal/services"
	"briefings/internal/services/intel"
	"briefings/internal/services/llm"
)

const (
	topicsMaxTokens      = 2500
	suggestionsMaxTokens = 3000
	trailersMaxTokens    = 3000
	outlineMaxTokens     = 4000
	singleTopicMaxTokens = 1000

	topicsLimit      = 6
	suggestionsLimit = 10
	trailersLimit    = 6

	// IntelPrefix marks titles of topics derived from the intelligence page.
	IntelPrefix = "[AR] "
)

// IntelSource supplies competitive-intelligence sections. Failures surface
// as an empty result.
type IntelSource interface {
	Fetch(ctx context.Context) intel.Sections
}

type configurable interface {
	Configured() bool
}

// Generator turns prompts into topics.
type Generator struct {
	llm    llm.Completer
	intel  IntelSource
	logger *slog.Logger
}

// NewGenerator wires a generator. source may be nil when no intelligence
// page is configured.
func NewGenerator(completer llm.Completer, source IntelSource, logger *slog.Logger) *Generator {
	return &Generator{
		llm:    completer,
		intel:  source,
		logger: logging.NewComponentLogger(logger, "editorial"),
	}
}

func (g *Generator) configured() bool {
	if g.llm == nil {
		return false
	}
	if c, ok := g.llm.(configurable); ok {
		return c.Configured()
	}
	return true
}

func (g *Generator) sections(ctx context.Context) intel.Sections {
	if g.intel == nil {
		return nil
	}
	return g.intel.Fetch(ctx)
}

// Topics produces the daily ranked topics. It never fails: without a key, or
// when generation or parsing fails, the built-in set is returned.
func (g *Generator) Topics(ctx context.Context) []Topic {
	if !g.configured() {
		return FallbackTopics()
	}
	topics, err := g.generateTopics(ctx)
	if err != nil {
		logging.WarnWithContext(g.logger, "topic generation failed; serving built-in topics", "editorial.topics_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "today's topics are the built-in set"),
		)
		return FallbackTopics()
	}
	return topics
}

func (g *Generator) generateTopics(ctx context.Context) ([]Topic, error) {
	var block string
	if sections := g.sections(ctx); !sections.Empty() {
		block = sections.Format()
	}
	prompt, err := topicsPrompt(block)
	if err != nil {
		return nil, err
	}
	text, err := g.llm.Complete(ctx, prompt, topicsMaxTokens, false)
	if err != nil {
		return nil, err
	}
	var topics []Topic
	if err := llm.DecodeJSONArray(text, &topics); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "editorial", "topics", "parse topics", err)
	}
	if len(topics) == 0 {
		return nil, errors.New("model returned no topics")
	}
	return limit(topics, topicsLimit), nil
}

// Suggestions generates up to ten new topics steered by listener signals.
func (g *Generator) Suggestions(ctx context.Context, signals Signals) ([]Topic, error) {
	prompt, err := suggestionsPrompt(signals)
	if err != nil {
		return nil, err
	}
	topics, err := g.searchList(ctx, "suggestions", prompt, suggestionsMaxTokens)
	if err != nil {
		return nil, err
	}
	return limit(topics, suggestionsLimit), nil
}

// NightlyTrailers generates the six high-confidence topics queued overnight.
func (g *Generator) NightlyTrailers(ctx context.Context, signals Signals) ([]Topic, error) {
	prompt, err := trailersPrompt(signals)
	if err != nil {
		return nil, err
	}
	topics, err := g.searchList(ctx, "nightly_trailers", prompt, trailersMaxTokens)
	if err != nil {
		return nil, err
	}
	return limit(topics, trailersLimit), nil
}

func (g *Generator) searchList(ctx context.Context, op, prompt string, maxTokens int) ([]Topic, error) {
	text, searchErr, err := llm.CompleteSearchFirst(ctx, g.llm, prompt, maxTokens)
	if searchErr != nil && err == nil {
		logging.WarnWithContext(g.logger, "web search call failed; used plain generation", "editorial.search_fallback",
			logging.String(logging.FieldStage, op),
			logging.Error(searchErr),
			logging.String(logging.FieldImpact, "results are not grounded in live search"),
		)
	}
	if err != nil {
		return nil, err
	}
	var topics []Topic
	if err := llm.DecodeJSONArray(text, &topics); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "editorial", op, "parse topics", err)
	}
	return topics, nil
}

// Outline designs a progressive series arc of the requested length.
func (g *Generator) Outline(ctx context.Context, seed Seed, episodes int) ([]Topic, error) {
	if episodes < 1 {
		return nil, services.Wrap(services.ErrValidation, "editorial", "outline", "episode count must be positive", nil)
	}
	prompt, err := outlinePrompt(seed, episodes)
	if err != nil {
		return nil, err
	}
	text, err := g.llm.Complete(ctx, prompt, outlineMaxTokens, false)
	if err != nil {
		return nil, err
	}
	var outline []Topic
	if err := llm.DecodeJSONArray(text, &outline); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "editorial", "outline", "parse series outline", err)
	}
	if len(outline) == 0 {
		return nil, services.Wrap(services.ErrExternalService, "editorial", "outline", "series outline is empty", nil)
	}
	g.logger.Info("series outline generated", logging.Int("episodes", len(outline)))
	return outline, nil
}

// ChatTopic turns a free-form message into one topic. existing gives the
// model the current ranked list for reference.
func (g *Generator) ChatTopic(ctx context.Context, message string, existing []Topic) (Topic, error) {
	prompt, err := chatPrompt(message, existing)
	if err != nil {
		return Topic{}, err
	}
	return g.singleTopic(ctx, "chat", prompt)
}

// IntelTopic derives one topic from the intelligence page. ok is false when
// the page yielded no sections.
func (g *Generator) IntelTopic(ctx context.Context) (topic Topic, ok bool, err error) {
	sections := g.sections(ctx)
	if sections.Empty() {
		return Topic{}, false, nil
	}
	prompt, err := autoqueuePrompt(sections.Format())
	if err != nil {
		return Topic{}, false, err
	}
	topic, err = g.singleTopic(ctx, "autoqueue", prompt)
	if err != nil {
		return Topic{}, false, err
	}
	topic.Title = IntelPrefix + topic.Title
	return topic, true, nil
}

func (g *Generator) singleTopic(ctx context.Context, op, prompt string) (Topic, error) {
	text, err := g.llm.Complete(ctx, prompt, singleTopicMaxTokens, false)
	if err != nil {
		return Topic{}, err
	}
	var topic Topic
	if err := llm.DecodeLLMJSON(text, &topic); err != nil {
		return Topic{}, services.Wrap(services.ErrExternalService, "editorial", op, "parse topic", err)
	}
	if strings.TrimSpace(topic.Title) == "" {
		return Topic{}, services.Wrap(services.ErrExternalService, "editorial", op, "topic has no title", nil)
	}
	return topic, nil
}

func limit(topics []Topic, n int) []Topic {
	if len(topics) > n {
		return topics[:n]
	}
	return topics
}
