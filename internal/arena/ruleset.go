package arena

import (
	"fmt"
	"strconv"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
)

type Outcome int

const (
	Tie Outcome = iota
	Side1
	Side2
)

func (o Outcome) String() string {
	switch o {
	case Side1:
		return "side1"
	case Side2:
		return "side2"
	default:
		return "tie"
	}
}

type Game struct {
	Type  model.GameType `json:"type"`
	Label string         `json:"label"`
	Moves []string       `json:"moves"`

	resolve func(rnd Random, move1, move2 string) Outcome
}

func (g Game) IsLegal(move string) bool {
	for _, m := range g.Moves {
		if m == move {
			return true
		}
	}
	return false
}

var games = map[model.GameType]Game{
	model.RockPaperScissors: {
		Type:    model.RockPaperScissors,
		Label:   "Rock Paper Scissors",
		Moves:   []string{"rock", "paper", "scissors"},
		resolve: cycle(map[string]string{"rock": "scissors", "scissors": "paper", "paper": "rock"}),
	},
	model.CoinFlip: {
		Type:    model.CoinFlip,
		Label:   "Coin Flip",
		Moves:   []string{"heads", "tails"},
		resolve: binaryGuess([]string{"heads", "tails"}),
	},
	model.NumberGuess: {
		Type:    model.NumberGuess,
		Label:   "Number Guess (1-10)",
		Moves:   []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		resolve: closestToTarget(1, 10),
	},
	model.Strategy: {
		Type:    model.Strategy,
		Label:   "Strategy (Attack/Defend/Counter)",
		Moves:   []string{"attack", "defend", "counter"},
		resolve: cycle(map[string]string{"attack": "defend", "defend": "counter", "counter": "attack"}),
	},
}

func LookupGame(gameType model.GameType) (Game, error) {
	g, ok := games[gameType]
	if !ok {
		return Game{}, fmt.Errorf("%w: %q", ErrUnknownGameType, gameType)
	}
	return g, nil
}

// Games lists the supported games in a stable order.
func Games() []Game {
	return []Game{
		games[model.RockPaperScissors],
		games[model.CoinFlip],
		games[model.NumberGuess],
		games[model.Strategy],
	}
}

type Ruleset struct {
	rnd Random
}

func NewRuleset(rnd Random) *Ruleset {
	return &Ruleset{rnd: rnd}
}

// Resolve decides one attempt. Games with a random component draw once per call.
func (r *Ruleset) Resolve(gameType model.GameType, move1, move2 string) (Outcome, error) {
	g, err := LookupGame(gameType)
	if err != nil {
		return Tie, err
	}
	if !g.IsLegal(move1) || !g.IsLegal(move2) {
		return Tie, fmt.Errorf("%w: %q vs %q in %s", ErrIllegalMove, move1, move2, gameType)
	}
	return g.resolve(r.rnd, move1, move2), nil
}

// cycle builds a symmetric game where each move beats exactly the move it maps to.
func cycle(beats map[string]string) func(Random, string, string) Outcome {
	return func(_ Random, move1, move2 string) Outcome {
		switch {
		case move1 == move2:
			return Tie
		case beats[move1] == move2:
			return Side1
		default:
			return Side2
		}
	}
}

func binaryGuess(sides []string) func(Random, string, string) Outcome {
	return func(rnd Random, move1, move2 string) Outcome {
		flip := sides[rnd.Intn(len(sides))]
		correct1, correct2 := move1 == flip, move2 == flip
		switch {
		case correct1 && !correct2:
			return Side1
		case correct2 && !correct1:
			return Side2
		default:
			return Tie
		}
	}
}

func closestToTarget(min, max int) func(Random, string, string) Outcome {
	return func(rnd Random, move1, move2 string) Outcome {
		target := rnd.Intn(max-min+1) + min
		// moves are legal at this point, so they parse
		n1, _ := strconv.Atoi(move1)
		n2, _ := strconv.Atoi(move2)
		d1, d2 := abs(n1-target), abs(n2-target)
		switch {
		case d1 < d2:
			return Side1
		case d2 < d1:
			return Side2
		default:
			return Tie
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
