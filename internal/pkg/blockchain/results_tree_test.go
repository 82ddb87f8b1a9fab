package blockchain

import (
	"testing"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedMatch(id string, round int, a1, a2, winner string) model.Match {
	m1, m2 := "rock", "scissors"
	return model.Match{
		Id:         id,
		ArenaId:    "arena-1",
		Round:      round,
		Agent1Id:   a1,
		Agent2Id:   a2,
		Agent1Move: &m1,
		Agent2Move: &m2,
		WinnerId:   &winner,
		DecidedBy:  model.DecidedByRules,
	}
}

func TestResultsTreeRootIsStable(t *testing.T) {
	matches := []model.Match{
		resolvedMatch("m2", 1, "c", "d", "c"),
		resolvedMatch("m1", 1, "a", "b", "a"),
		resolvedMatch("m3", 2, "a", "c", "a"),
	}

	first, err := NewResultsTree(matches)
	require.NoError(t, err)

	reordered := []model.Match{matches[2], matches[1], matches[0]}
	second, err := NewResultsTree(reordered)
	require.NoError(t, err)

	assert.Equal(t, first.Root(), second.Root())
	assert.Len(t, first.Root(), 2+64)
}

func TestResultsTreeRootChangesWithOutcome(t *testing.T) {
	m := resolvedMatch("m1", 1, "a", "b", "a")
	before, err := NewResultsTree([]model.Match{m})
	require.NoError(t, err)

	flipped := resolvedMatch("m1", 1, "a", "b", "b")
	after, err := NewResultsTree([]model.Match{flipped})
	require.NoError(t, err)

	assert.NotEqual(t, before.Root(), after.Root())
}

func TestResultsTreeSkipsUnresolved(t *testing.T) {
	_, err := NewResultsTree([]model.Match{{Id: "pending", Agent1Id: "a", Agent2Id: "b"}})
	assert.Error(t, err)
}

func TestResultsTreeProof(t *testing.T) {
	tree, err := NewResultsTree([]model.Match{
		resolvedMatch("m1", 1, "a", "b", "a"),
		resolvedMatch("m2", 1, "c", "d", "d"),
	})
	require.NoError(t, err)

	proof, err := tree.Proof("m1")
	require.NoError(t, err)
	assert.NotEmpty(t, proof)

	_, err = tree.Proof("missing")
	assert.Error(t, err)
}
