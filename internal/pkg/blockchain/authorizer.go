package blockchain

// Authorizer identifies a Flow account together with the KMS key that signs for it.
type Authorizer struct {
	KmsResourceId        string `json:"kmsResourceId"`
	ResourceOwnerAddress string `json:"resourceOwnerAddress"`
}

func NewAuthorizer(kmsResourceId, address string) Authorizer {
	return Authorizer{
		KmsResourceId:        kmsResourceId,
		ResourceOwnerAddress: address,
	}
}

func (a Authorizer) IsZero() bool {
	return a.KmsResourceId == "" || a.ResourceOwnerAddress == ""
}
