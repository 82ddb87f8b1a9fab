package agent

// Personalities seed agents created without one.
var Personalities = []string{
	"Aggressive and risk-taking. Always goes for the bold move.",
	"Cautious and analytical. Prefers safe, calculated decisions.",
	"Chaotic and unpredictable. Makes random choices for fun.",
	"Strategic mastermind. Plans several moves ahead.",
	"Friendly diplomat. Prefers cooperation over competition.",
	"Ruthless competitor. Winning is everything.",
	"Philosophical thinker. Questions the nature of every decision.",
	"Loyal follower. Sticks with the group consensus.",
}
