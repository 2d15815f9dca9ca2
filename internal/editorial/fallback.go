package editorial

// FallbackTopics returns the built-in topic set served when generation is
// unavailable. A fresh slice is returned on every call.
func FallbackTopics() []Topic {
	out := make([]Topic, len(fallbackTopics))
	for i, t := range fallbackTopics {
		t.SubQuestions = append([]string(nil), t.SubQuestions...)
		out[i] = t
	}
	return out
}

var fallbackTopics = []Topic{
	{
		Rank:          1,
		Title:         "The Governance Tax: Why Most Enterprise AI Programs Are Paying for Risk They've Already Accepted",
		Tension:       "Organizations build elaborate AI governance frameworks after already deploying high-risk systems. The governance comes after the exposure, not before it.",
		WhyItMatters:  "Misaligned governance timing creates compliance theater that burns budget without reducing actual risk.",
		CommonMistake: "Leaders treat governance as a launch gate rather than a continuous risk calibration process, which means controls are always one deployment behind actual exposure.",
		SubQuestions: []string{
			"At what point does governance reduce risk versus just document it?",
			"How do you price retroactive governance versus pre-deployment friction?",
			"What incentive structures cause governance teams to prioritize documentation over risk reduction?",
		},
		TrailerHook: "Here's something nobody in your governance steering committee wants to say out loud: most enterprise AI governance programs are retroactive. You've already deployed the models. You've already accepted the risk. The frameworks you're building now are documentation for decisions already made. The real question is whether your governance creates actual risk reduction or just paper trails.",
	},
	{
		Rank:          2,
		Title:         "Agentic AI Broke Your ROI Model - And Your CFO Doesn't Know It Yet",
		Tension:       "Traditional ROI frameworks measure discrete outputs. Agentic AI generates value through non-linear, compounding processes largely invisible to standard measurement.",
		WhyItMatters:  "Executives who can't articulate agentic AI ROI in CFO terms will lose the budget war.",
		CommonMistake: "Most analytics leaders retrofit agentic AI value into hours-saved metrics, which systematically undervalues compounding effects and undermines the investment case.",
		SubQuestions: []string{
			"What's the right unit of measurement for a system that improves its own decision quality over time?",
			"How do you present agentic ROI to a CFO trained on capital budgeting?",
			"What's the opportunity cost of NOT deploying agents while competitors do?",
		},
		TrailerHook: "You cannot measure agentic AI the way you measured your last analytics platform. The value is in the loops - decisions made faster, signals never caught, systems learning at 3am. Your current ROI model was built for batch reporting. If you're still presenting AI value as hours-saved, you're losing the budget argument before it starts.",
	},
	{
		Rank:          3,
		Title:         "The Data Moat Is Dead - What Replaces It as Strategic Advantage",
		Tension:       "For a decade, proprietary data was the defensible edge. Foundation models have commoditized data advantage faster than most executives have internalized.",
		WhyItMatters:  "Executives investing in data hoarding instead of workflow integration are building walls around empty vaults.",
		CommonMistake: "Leaders conflate data volume with data advantage, not recognizing scarcity has shifted from data to operational judgment.",
		SubQuestions: []string{
			"What does a defensible moat look like when foundation models approximate your proprietary knowledge?",
			"How do you communicate the shift from data strategy to workflow strategy to a board that funded the data lake?",
			"Where does first-party behavioral data still create genuine asymmetry?",
		},
		TrailerHook: "The data moat argument used to work. You had the data, competitors didn't, you had the edge. That logic is collapsing. When foundation models synthesize industry knowledge from public sources that rivals your proprietary training data, the moat isn't the data. The moat is the workflow.",
	},
	{
		Rank:          4,
		Title:         "Beverage Alcohol's Data Silence Problem: Why the Industry Knows Less Than It Should",
		Tension:       "Despite massive distribution networks and decades of sell-through data, beverage alcohol remains one of the most information-asymmetric industries in CPG - by design.",
		WhyItMatters:  "The next competitive wave belongs to operators who solve the last-mile data problem, not those who spend more on brand.",
		CommonMistake: "Brand teams treat the data gap as a vendor problem when the actual barrier is three-tier incentive misalignment no data provider can fix.",
		SubQuestions: []string{
			"What would real-time venue-level visibility require in a three-tier system?",
			"Where does menu scraping create actionable intelligence that replaces missing sell-through data?",
			"What's the strategic value of knowing venue penetration before competitors do?",
		},
		TrailerHook: "The beverage alcohol industry sits on a paradox. Trillion-dollar brands. Global distribution. And almost no reliable real-time data on what's happening at venue level. The three-tier system was designed to create information asymmetry. That changes when AI reads menus at scale.",
	},
	{
		Rank:          5,
		Title:         "Why Your Best Analysts Are Training Their Own Replacements",
		Tension:       "High-performing analysts who adopt AI are simultaneously commoditizing their own skills and becoming the most irreplaceable people in the organization.",
		WhyItMatters:  "Analytics talent strategy needs a complete rethink as the skill premium shifts from technical execution to system design.",
		CommonMistake: "Analytics leaders protect headcount by resisting AI adoption, creating conditions for their function to be outsourced once leadership runs the math on AI-enabled generalists.",
		SubQuestions: []string{
			"What's the right ratio of AI-augmented analysts to traditional FTEs?",
			"What skills are you hiring for in 2026 that didn't exist as a category in 2022?",
			"How do you restructure performance management when AI handles most measurable output?",
		},
		TrailerHook: "Your best analyst just used Claude to do in 20 minutes what used to take two weeks. You've repriced their labor market value downward and upward simultaneously. The person who knows how to direct AI toward the right problem is extraordinarily rare. How you respond to that tension will determine whether your analytics function compounds or collapses.",
	},
	{
		Rank:          6,
		Title:         "The CAO Role Is Disappearing - What Comes Next Is More Powerful and Harder to Fill",
		Tension:       "The Chief Analytics Officer title is being absorbed into CAIO, CDO, and CTO roles - but the executive who translates AI capability into business strategy has never been more scarce.",
		WhyItMatters:  "Analytics leaders who define themselves by function rather than strategic value will find their seats eliminated in the next org redesign.",
		CommonMistake: "CAOs defend their role by proving team output rather than positioning themselves as the interpreter between AI capability and board-level strategy.",
		SubQuestions: []string{
			"What's the actual job description of the executive who owns AI strategy in a post-CAO structure?",
			"How do you transition from functional leader to strategic interpreter before the title disappears?",
			"How do you build the board relationship that makes you essential regardless of title?",
		},
		TrailerHook: "The CAO title is getting squeezed from three directions - Chief AI Officers taking the forward mandate, CDOs absorbing governance, CTOs claiming infrastructure. If your value proposition is 'I run the analytics function,' that's a shrinking job. If it's 'I make AI investments legible to the board,' that role has never been more critical or more vacant.",
	},
}
