package script

import "briefings/internal/editorial"

const (
	defaultWhyItMatters  = "This has direct implications for how you allocate capital and talent."
	defaultCommonMistake = "They optimize for visibility over actual impact, which means the real exposure never gets addressed."
)

var defaultQuestions = [3]string{
	"Where in your current approach are you optimizing for the appearance of progress rather than the underlying condition?",
	"What would you do differently if you knew your current approach had a 24-month shelf life?",
	"How are you measuring whether your governance and your actual exposure are in sync?",
}

// Fallback builds the twelve-segment script used when generation is
// unavailable.
func Fallback(topic editorial.Topic) []Segment {
	matters := topic.WhyItMatters
	if matters == "" {
		matters = defaultWhyItMatters
	}
	mistake := topic.CommonMistake
	if mistake == "" {
		mistake = defaultCommonMistake
	}
	question := func(i int) string {
		if i < len(topic.SubQuestions) {
			return topic.SubQuestions[i]
		}
		return defaultQuestions[i]
	}

	return []Segment{
		{HostAlex, "Let's start with something most executives in this space already know but haven't fully acted on. " + topic.Title + ". The question isn't whether this is real - it's whether you're positioned correctly when it hits your organization."},
		{HostMorgan, "And the core tension is this: " + topic.Tension + " That's the uncomfortable part. Because it means the conventional playbook - the one that got most leaders to where they are - may actually be the wrong tool for what's coming."},
		{HostAlex, "Here's why this matters at the strategic level right now. " + matters + " And the window to get ahead of this is shorter than most leadership teams have internalized."},
		{HostMorgan, "Let's ground this in what's actually happening. The organizations that are navigating this well aren't the ones with the biggest budgets or the most sophisticated tech stacks. They're the ones that identified the structural cause early and built around it rather than against it."},
		{HostAlex, "The structural cause is key. Most conversations about this topic focus on symptoms - the visible friction, the metrics that are off, the talent gaps. But the mechanism underneath is an incentive misalignment that organizations keep papering over with process instead of fixing at the root."},
		{HostMorgan, "Which brings us to what sophisticated leaders consistently get wrong. " + mistake + " And the irony is that the leaders who are most experienced - who've solved hard problems before - are often the most prone to this mistake because their pattern recognition is calibrated to a different era."},
		{HostAlex, "The first question worth sitting with: " + question(0) + " That's not a rhetorical question. It has a specific answer in your organization right now."},
		{HostMorgan, "And the second: " + question(1) + " Because the executives who are three moves ahead on this aren't smarter - they just asked that question earlier."},
		{HostAlex, "If there's a third lever worth examining: " + question(2) + " The answer tells you more about your real risk posture than any framework document."},
		{HostMorgan, "Here's the practical implication. The next time this comes up - whether it's a board review, a budget cycle, or a talent discussion - the question isn't 'are we doing enough.' The question is 'are we working on the right thing.' Those are very different questions with very different answers."},
		{HostAlex, "The executives who navigate this well aren't the ones with the best data or the biggest teams. They're the ones who identified where their mental model was wrong and updated it before the market forced them to. That's the actual competitive advantage here."},
		{HostMorgan, "Leave you with this reframe: " + topic.Title + " isn't a problem to solve. It's a condition to position around. The organizations that treat it as solvable will spend the next three years in reactive mode. The ones that treat it as structural reality will spend that same time building asymmetric advantage. That's the briefing."},
	}
}
