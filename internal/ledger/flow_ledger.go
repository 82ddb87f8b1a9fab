package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/blockchain"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/model"
	"github.com/onflow/cadence"
	"github.com/onflow/flow-go-sdk"
	"github.com/onflow/flow-go-sdk/crypto"
	"github.com/rs/zerolog/log"
)

const (
	transactionGasLimit = 9999
	// the sender pays fees and must keep its storage reservation, 0.001 FLOW
	transferFeeMargin model.Amount = 100_000
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransactionFailed   = errors.New("transaction failed")
)

// AccessClient is the part of the Flow access API the ledger uses. *grpc.Client implements it.
type AccessClient interface {
	GetLatestBlockHeader(ctx context.Context, isSealed bool) (*flow.BlockHeader, error)
	GetAccount(ctx context.Context, address flow.Address) (*flow.Account, error)
	SendTransaction(ctx context.Context, tx flow.Transaction) error
	GetTransactionResult(ctx context.Context, txID flow.Identifier) (*flow.TransactionResult, error)
	ExecuteScriptAtLatestBlock(ctx context.Context, script []byte, arguments []cadence.Value) (cadence.Value, error)
}

type SignerProvider interface {
	SignerFor(ctx context.Context, kmsResourceId string) (crypto.Signer, error)
}

type FlowLedger struct {
	client               AccessClient
	signers              SignerProvider
	platform             blockchain.Authorizer
	flowTokenAddress     string
	fungibleTokenAddress string
	pollMin              time.Duration
	pollMax              time.Duration

	// one in flight transaction per proposer keeps sequence numbers in order
	proposerLocks sync.Map
}

type Config struct {
	Platform             blockchain.Authorizer
	FlowTokenAddress     string
	FungibleTokenAddress string
}

func NewFlowLedger(client AccessClient, signers SignerProvider, cfg Config) *FlowLedger {
	return &FlowLedger{
		client:               client,
		signers:              signers,
		platform:             cfg.Platform,
		flowTokenAddress:     cfg.FlowTokenAddress,
		fungibleTokenAddress: cfg.FungibleTokenAddress,
		pollMin:              500 * time.Millisecond,
		pollMax:              5 * time.Second,
	}
}

func (l *FlowLedger) EscrowAddress() string {
	return l.platform.ResourceOwnerAddress
}

func (l *FlowLedger) Balance(ctx context.Context, address string) (model.Amount, error) {
	flowAddress := flow.HexToAddress(address)
	args := []cadence.Value{cadence.Address(cadence.BytesToAddress(flowAddress.Bytes()))}

	value, err := l.client.ExecuteScriptAtLatestBlock(ctx, withAddresses(balanceScript, l.flowTokenAddress, l.fungibleTokenAddress), args)
	if err != nil {
		return 0, err
	}
	balance, ok := value.(cadence.UFix64)
	if !ok {
		return 0, fmt.Errorf("unexpected balance value %s", value)
	}
	return model.Amount(balance), nil
}

// Transfer moves amount of FLOW from the signer's account to toAddress and waits until the
// transaction is sealed. The returned reference is the transaction id. When ctx ends after
// submission the error is a *blockchain.PendingTransactionError carrying that id.
func (l *FlowLedger) Transfer(ctx context.Context, from blockchain.Authorizer, toAddress string, amount model.Amount) (string, error) {
	if from.IsZero() {
		return "", fmt.Errorf("transfer without a signing account")
	}

	lock := l.proposerLock(from.ResourceOwnerAddress)
	lock.Lock()
	defer lock.Unlock()

	balance, err := l.Balance(ctx, from.ResourceOwnerAddress)
	if err != nil {
		return "", fmt.Errorf("balance check: %w", err)
	}
	if balance < amount || balance-amount < transferFeeMargin {
		return "", fmt.Errorf("%w: %s holds %s, needs %s plus %s for fees", ErrInsufficientBalance, from.ResourceOwnerAddress, balance.Display(), amount.Display(), transferFeeMargin.Display())
	}

	txId, err := l.send(ctx, from, toAddress, amount)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("txRef", txId.String()).
		Str("from", from.ResourceOwnerAddress).
		Str("to", toAddress).
		Str("amount", amount.Display()).
		Msg("Transfer submitted")

	if err := l.waitForSeal(ctx, txId); err != nil {
		if errors.Is(err, ErrTransactionFailed) {
			return "", err
		}
		return "", &blockchain.PendingTransactionError{TxRef: txId.String(), Err: err}
	}
	return txId.String(), nil
}

// TransactionStatus looks up a transaction submitted earlier by Transfer or Fund.
func (l *FlowLedger) TransactionStatus(ctx context.Context, txRef string) (blockchain.TxStatus, error) {
	result, err := l.client.GetTransactionResult(ctx, flow.HexToID(txRef))
	if err != nil {
		return "", err
	}
	switch {
	case result.Error != nil:
		return blockchain.TxFailed, nil
	case result.Status == flow.TransactionStatusSealed:
		return blockchain.TxSealed, nil
	default:
		return blockchain.TxPending, nil
	}
}

// Fund pays out of the platform account.
func (l *FlowLedger) Fund(ctx context.Context, toAddress string, amount model.Amount) (string, error) {
	return l.Transfer(ctx, l.platform, toAddress, amount)
}

func (l *FlowLedger) send(ctx context.Context, from blockchain.Authorizer, toAddress string, amount model.Amount) (flow.Identifier, error) {
	signer, err := l.signers.SignerFor(ctx, from.KmsResourceId)
	if err != nil {
		return flow.EmptyID, fmt.Errorf("signer for %s: %w", from.ResourceOwnerAddress, err)
	}

	header, err := l.client.GetLatestBlockHeader(ctx, true)
	if err != nil {
		return flow.EmptyID, err
	}

	proposer := flow.HexToAddress(from.ResourceOwnerAddress)
	account, err := l.client.GetAccount(ctx, proposer)
	if err != nil {
		return flow.EmptyID, err
	}
	if len(account.Keys) == 0 {
		return flow.EmptyID, fmt.Errorf("account %s has no keys", proposer)
	}
	key := account.Keys[0]

	tx := flow.NewTransaction().
		SetScript(withAddresses(transferScript, l.flowTokenAddress, l.fungibleTokenAddress)).
		SetReferenceBlockID(header.ID).
		SetProposalKey(proposer, key.Index, key.SequenceNumber).
		SetPayer(proposer).
		AddAuthorizer(proposer)
	tx.GasLimit = transactionGasLimit

	recipient := flow.HexToAddress(toAddress)
	if err := tx.AddArgument(cadence.UFix64(amount)); err != nil {
		return flow.EmptyID, err
	}
	if err := tx.AddArgument(cadence.Address(cadence.BytesToAddress(recipient.Bytes()))); err != nil {
		return flow.EmptyID, err
	}

	if err := tx.SignEnvelope(proposer, key.Index, signer); err != nil {
		return flow.EmptyID, fmt.Errorf("sign transfer: %w", err)
	}

	if err := l.client.SendTransaction(ctx, *tx); err != nil {
		return flow.EmptyID, err
	}
	return tx.ID(), nil
}

func (l *FlowLedger) waitForSeal(ctx context.Context, txId flow.Identifier) error {
	b := &backoff.Backoff{
		Min:    l.pollMin,
		Max:    l.pollMax,
		Factor: 2,
		Jitter: true,
	}

	for {
		result, err := l.client.GetTransactionResult(ctx, txId)
		switch {
		case err != nil:
			log.Trace().Err(err).Str("txRef", txId.String()).Msg("Transaction result not available yet")
		case result.Error != nil:
			return fmt.Errorf("%w: %s: %w", ErrTransactionFailed, txId, result.Error)
		case result.Status == flow.TransactionStatusSealed:
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for transaction %s: %w", txId, ctx.Err())
		case <-time.After(b.Duration()):
		}
	}
}

func (l *FlowLedger) proposerLock(address string) *sync.Mutex {
	lock, _ := l.proposerLocks.LoadOrStore(address, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
