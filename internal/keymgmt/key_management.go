package keymgmt

import (
	"context"
	"fmt"
	"strings"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/onflow/flow-go-sdk"
	"github.com/onflow/flow-go-sdk/crypto"
	"github.com/onflow/flow-go-sdk/crypto/cloudkms"
	"github.com/rs/zerolog/log"
)

const publicKeyDeadline = 60 * time.Second

type PrivateKey struct {
	Index    int                       `json:"index"`
	Type     string                    `json:"type"`
	Value    string                    `json:"-"`
	SignAlgo crypto.SignatureAlgorithm `json:"-"`
	HashAlgo crypto.HashAlgorithm      `json:"-"`
}

// AgentKey is a freshly generated wallet key: the hex public key that goes into the account
// creation command and the KMS resource id that later signs for the account.
type AgentKey struct {
	PublicKey  string
	ResourceId string
}

// KeyManager creates agent wallet keys in a single Google KMS key ring.
type KeyManager struct {
	projectId  string
	locationId string
	keyRingId  string
}

func NewKeyManager(projectId, locationId, keyRingId string) (*KeyManager, error) {
	if projectId == "" || locationId == "" || keyRingId == "" {
		return nil, fmt.Errorf("KMS project, location and key ring are required")
	}
	return &KeyManager{projectId: projectId, locationId: locationId, keyRingId: keyRingId}, nil
}

func (m *KeyManager) keyRing() string {
	return fmt.Sprintf("projects/%s/locations/%s/keyRings/%s", m.projectId, m.locationId, m.keyRingId)
}

func (m *KeyManager) NewAgentKey(ctx context.Context) (AgentKey, error) {
	accountKey, privateKey, err := m.GenerateAsymetricKey(ctx, 0, flow.AccountKeyWeightThreshold)
	if err != nil {
		return AgentKey{}, err
	}
	return AgentKey{
		PublicKey:  accountKey.PublicKey.String(),
		ResourceId: privateKey.Value,
	}, nil
}

func (m *KeyManager) GenerateAsymetricKey(ctx context.Context, keyIndex, weight int) (*flow.AccountKey, *PrivateKey, error) {
	k, err := createAsymetricKey(ctx, m.keyRing(), fmt.Sprintf("agora-agent-wallet-key-%s", uuid.New().String()))
	if err != nil {
		return nil, nil, err
	}

	client, err := cloudkms.NewClient(ctx)
	if err != nil {
		return nil, nil, err
	}

	pub, h, s, err := GetPublicKey(ctx, client, k)
	if err != nil {
		log.Error().Err(err).Str("keyId", k.KeyID).Msg("Failed to get public key for Google KMS key")
		return nil, nil, err
	}

	f := flow.NewAccountKey().
		SetPublicKey(*pub).
		SetHashAlgo(*h).
		SetWeight(weight)
	f.Index = keyIndex

	p := &PrivateKey{
		Index:    keyIndex,
		Type:     "google_kms",
		Value:    k.ResourceID(),
		SignAlgo: *s,
		HashAlgo: *h,
	}

	return f, p, nil
}

// GetPublicKey polls KMS until the key leaves KEY_PENDING_GENERATION.
func GetPublicKey(ctx context.Context, kmsClient *cloudkms.Client, kmsKey *cloudkms.Key) (*crypto.PublicKey, *crypto.HashAlgorithm, *crypto.SignatureAlgorithm, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	deadline := time.Now().Add(publicKeyDeadline)

	log.Trace().Str("keyId", kmsKey.KeyID).Msg("Getting public key for KMS key")

	for {
		publicKey, hashAlgo, err := kmsClient.GetPublicKey(ctx, *kmsKey)
		if err == nil && publicKey != nil {
			signAlgo := publicKey.Algorithm()
			return &publicKey, &hashAlgo, &signAlgo, nil
		}
		if err != nil && !strings.Contains(err.Error(), "KEY_PENDING_GENERATION") {
			return nil, nil, nil, err
		}
		if time.Now().After(deadline) {
			return nil, nil, nil, fmt.Errorf("timeout while trying to get public key for %s", kmsKey.KeyID)
		}

		log.Trace().Msg("KMS key is pending creation, will retry")
		select {
		case <-ctx.Done():
			return nil, nil, nil, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func createAsymetricKey(ctx context.Context, parent string, id string) (*cloudkms.Key, error) {
	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	r := &kmspb.CreateCryptoKeyRequest{
		Parent:      parent,
		CryptoKeyId: id,
		CryptoKey: &kmspb.CryptoKey{
			Purpose: kmspb.CryptoKey_ASYMMETRIC_SIGN,
			VersionTemplate: &kmspb.CryptoKeyVersionTemplate{
				Algorithm: kmspb.CryptoKeyVersion_EC_SIGN_P256_SHA256,
			},
			Labels: map[string]string{
				"service": "agora-api",
			},
		},
	}

	gk, err := client.CreateCryptoKey(ctx, r)
	if err != nil {
		return nil, err
	}

	// cryptoKeyVersions/1 makes the name usable with KeyFromResourceID
	k, err := cloudkms.KeyFromResourceID(fmt.Sprintf("%s/cryptoKeyVersions/1", gk.Name))
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(k.ResourceID(), gk.Name) {
		return nil, fmt.Errorf("created Google KMS key name %s does not match %s", k.ResourceID(), gk.Name)
	}

	return &k, nil
}
