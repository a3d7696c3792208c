// Package nodekey holds the local validator identity used to sign consensus
// messages and commit seals.
package nodekey

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSecurityModule marks a failure of the underlying key store or signing
// hardware. Callers treat it as non-fatal: they log and abstain from emitting
// the message they were about to sign.
var ErrSecurityModule = errors.New("security module failure")

// NodeKey signs 32-byte digests on behalf of the local validator. Sign may
// fail with ErrSecurityModule when the key backend is unavailable.
type NodeKey interface {
	Sign(digest common.Hash) ([]byte, error)
	Address() common.Address
}

type localKey struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocal wraps an in-process secp256k1 private key.
func NewLocal(key *ecdsa.PrivateKey) NodeKey {
	return &localKey{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (k *localKey) Sign(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), k.key)
	if err != nil {
		return nil, errors.Join(ErrSecurityModule, err)
	}
	return sig, nil
}

func (k *localKey) Address() common.Address {
	return k.addr
}

// RecoverAuthor returns the address that produced sig over digest.
func RecoverAuthor(digest common.Hash, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
