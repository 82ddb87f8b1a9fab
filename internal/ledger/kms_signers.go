package ledger

import (
	"context"

	"github.com/onflow/flow-go-sdk/crypto"
	"github.com/onflow/flow-go-sdk/crypto/cloudkms"
)

type KmsSigners struct {
	client *cloudkms.Client
}

func NewKmsSigners(ctx context.Context) (*KmsSigners, error) {
	client, err := cloudkms.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &KmsSigners{client: client}, nil
}

func (k *KmsSigners) SignerFor(ctx context.Context, kmsResourceId string) (crypto.Signer, error) {
	key, err := cloudkms.KeyFromResourceID(kmsResourceId)
	if err != nil {
		return nil, err
	}
	signer, err := k.client.SignerForKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return signer, nil
}
