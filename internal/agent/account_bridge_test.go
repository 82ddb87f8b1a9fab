package agent

import (
	"context"
	"testing"

	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAccountCreatedAssignsWallet(t *testing.T) {
	repo := newMemoryRepository(model.Agent{Id: "a", PublicKey: strPtr("pub-1")})
	notifier := &recordingNotifier{}
	bridge := &accountContractBridge{repo: repo, notifier: notifier}

	err := bridge.applyAccountCreated(context.Background(), []byte(`{"originatingPublicKey":"pub-1","address":"0xf00d"}`))
	require.NoError(t, err)

	agent, _ := repo.FindById(context.Background(), "a")
	require.NotNil(t, agent.WalletAddress)
	assert.Equal(t, "0xf00d", *agent.WalletAddress)
	assert.Equal(t, []string{"agents/a"}, notifier.topics)
}

func TestApplyAccountCreatedRejectsBadMessages(t *testing.T) {
	bridge := &accountContractBridge{repo: newMemoryRepository()}

	err := bridge.applyAccountCreated(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, errMalformedMessage)

	err = bridge.applyAccountCreated(context.Background(), []byte(`{"address":"0x1"}`))
	assert.ErrorIs(t, err, errMalformedMessage)

	err = bridge.applyAccountCreated(context.Background(), []byte(`{"originatingPublicKey":"unknown","address":"0x1"}`))
	assert.ErrorIs(t, err, model.ErrNotFound)
}
