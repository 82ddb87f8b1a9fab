package blockchain

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/rs/zerolog/log"
	"github.com/wealdtech/go-merkletree"
	keccak "github.com/wealdtech/go-merkletree/keccak256"
)

// ResultsTree commits to every resolved match of a tournament so a single root
// can be published alongside the payout.
type ResultsTree struct {
	tree   *merkletree.MerkleTree
	leaves map[string][]byte
}

// MatchLeaf is the leaf encoding of a resolved match:
// ARENA|ROUND|MATCH|AGENT1|AGENT2|MOVE1|MOVE2|WINNER|DECIDED_BY
func MatchLeaf(m model.Match) []byte {
	str := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%s|%s",
		m.ArenaId,
		m.Round,
		m.Id,
		m.Agent1Id,
		m.Agent2Id,
		deref(m.Agent1Move),
		deref(m.Agent2Move),
		deref(m.WinnerId),
		m.DecidedBy)
	return []byte(str)
}

// NewResultsTree builds the tree over the resolved matches, ordered by round then id.
// Unresolved matches are skipped.
func NewResultsTree(matches []model.Match) (*ResultsTree, error) {
	resolved := make([]model.Match, 0, len(matches))
	for _, m := range matches {
		if m.IsResolved() {
			resolved = append(resolved, m)
		}
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("no resolved matches to commit")
	}

	sort.Slice(resolved, func(i, j int) bool {
		if resolved[i].Round != resolved[j].Round {
			return resolved[i].Round < resolved[j].Round
		}
		return resolved[i].Id < resolved[j].Id
	})

	treeData := make([][]byte, 0, len(resolved))
	leaves := make(map[string][]byte, len(resolved))
	for _, m := range resolved {
		leaf := MatchLeaf(m)
		treeData = append(treeData, leaf)
		leaves[m.Id] = leaf
	}

	mt, err := merkletree.NewUsing(treeData, keccak.New(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("Error while creating results merkle tree")
		return nil, err
	}

	return &ResultsTree{tree: mt, leaves: leaves}, nil
}

func (rt *ResultsTree) Root() string {
	return "0x" + hex.EncodeToString(rt.tree.Root())
}

// Proof returns the sibling hashes proving the given match is part of Root.
func (rt *ResultsTree) Proof(matchId string) ([]string, error) {
	leaf, ok := rt.leaves[matchId]
	if !ok {
		return nil, fmt.Errorf("match %s is not part of the results tree", matchId)
	}
	proof, err := rt.tree.GenerateProof(leaf)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(proof.Hashes))
	for _, h := range proof.Hashes {
		hashes = append(hashes, "0x"+hex.EncodeToString(h))
	}
	return hashes, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
