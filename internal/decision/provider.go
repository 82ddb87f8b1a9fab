package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

// Generator turns a prompt into a short text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type random interface {
	Intn(n int) int
}

// Provider lets a language model pick moves in character. Without a generator every move
// is drawn uniformly from the legal set.
type Provider struct {
	generator Generator
	rnd       random
}

func NewProvider(generator Generator, rnd random) *Provider {
	return &Provider{generator: generator, rnd: rnd}
}

func (p *Provider) ChooseMove(ctx context.Context, agent model.AgentIdentity, gameLabel string, legalMoves []string) (string, error) {
	if len(legalMoves) == 0 {
		return "", fmt.Errorf("no legal moves for %s", gameLabel)
	}
	if p.generator == nil {
		return legalMoves[p.rnd.Intn(len(legalMoves))], nil
	}

	reply, err := p.generator.Generate(ctx, buildPrompt(agent, gameLabel, legalMoves))
	if err != nil {
		return "", fmt.Errorf("move generation for %s: %w", agent.Id, err)
	}

	move, ok := ParseMove(reply, legalMoves)
	if !ok {
		log.Debug().Str("agentId", agent.Id).Str("reply", reply).Msg("Reply named no legal move, using first legal move")
		return legalMoves[0], nil
	}
	return move, nil
}

func buildPrompt(agent model.AgentIdentity, gameLabel string, legalMoves []string) string {
	return fmt.Sprintf(`You are %s (%s) playing %s.

Current game state: Make your move
Valid moves: %s

Choose your move. Respond with ONLY the move name, nothing else.`,
		agent.Name, agent.Personality, gameLabel, strings.Join(legalMoves, ", "))
}

// ParseMove finds the legal move a free text reply names. A whole word match wins over a
// substring match, and longer moves are tried first so "10" is not read as "1".
func ParseMove(reply string, legalMoves []string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	if normalized == "" {
		return "", false
	}

	legal := make(map[string]string, len(legalMoves))
	for _, m := range legalMoves {
		legal[strings.ToLower(m)] = m
	}

	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if move, ok := legal[w]; ok {
			return move, true
		}
	}

	byLength := make([]string, 0, len(legalMoves))
	for k := range legal {
		byLength = append(byLength, k)
	}
	sort.Slice(byLength, func(i, j int) bool {
		if len(byLength[i]) != len(byLength[j]) {
			return len(byLength[i]) > len(byLength[j])
		}
		return byLength[i] < byLength[j]
	})
	for _, k := range byLength {
		if strings.Contains(normalized, k) {
			return legal[k], true
		}
	}
	return "", false
}
