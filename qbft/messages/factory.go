package messages

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/opalchain/qbft/qbft/nodekey"
	"github.com/opalchain/qbft/qbft/types"
)

// Factory produces consensus messages signed by the local validator. Every
// constructor may fail with a nodekey.ErrSecurityModule-wrapped error, in
// which case the caller abstains from emitting that message.
type Factory struct {
	key nodekey.NodeKey
}

func NewFactory(key nodekey.NodeKey) *Factory {
	return &Factory{key: key}
}

// Address returns the local validator identity messages are signed with.
func (f *Factory) Address() common.Address {
	return f.key.Address()
}

func sign[T any](key nodekey.NodeKey, payload T) (SignedData[T], error) {
	digest, err := PayloadDigest(payload)
	if err != nil {
		return SignedData[T]{}, fmt.Errorf("encoding payload: %w", err)
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return SignedData[T]{}, fmt.Errorf("signing payload: %w", err)
	}
	return SignedData[T]{
		Payload:   payload,
		Author:    key.Address(),
		Signature: sig,
	}, nil
}

func (f *Factory) CreateProposal(
	roundID types.RoundIdentifier,
	block *types.Block,
	roundChanges []*RoundChange,
	prepares []*Prepare,
) (*Proposal, error) {
	signed, err := sign(f.key, ProposalPayload{RoundID: roundID, Block: block})
	if err != nil {
		return nil, err
	}
	return &Proposal{
		SignedPayload: signed,
		RoundChanges:  roundChanges,
		Prepares:      prepares,
	}, nil
}

func (f *Factory) CreatePrepare(
	roundID types.RoundIdentifier,
	digest common.Hash,
) (*Prepare, error) {
	signed, err := sign(f.key, PreparePayload{RoundID: roundID, Digest: digest})
	if err != nil {
		return nil, err
	}
	return &signed, nil
}

func (f *Factory) CreateCommit(
	roundID types.RoundIdentifier,
	digest common.Hash,
	commitSeal []byte,
) (*Commit, error) {
	signed, err := sign(f.key, CommitPayload{
		RoundID:    roundID,
		Digest:     digest,
		CommitSeal: commitSeal,
	})
	if err != nil {
		return nil, err
	}
	return &signed, nil
}

// CreateRoundChange builds a round-change message for roundID, piggybacking
// the prepared certificate when the sender had prepared in an earlier round.
func (f *Factory) CreateRoundChange(
	roundID types.RoundIdentifier,
	cert *PreparedCertificate,
) (*RoundChange, error) {
	payload := RoundChangePayload{RoundID: roundID}
	rc := &RoundChange{}
	if cert != nil {
		payload.Prepared = &PreparedRoundMetadata{
			PreparedRound:     cert.Round,
			PreparedBlockHash: cert.Block.Hash(),
		}
		rc.PreparedBlock = cert.Block
		rc.Prepares = cert.Prepares
	}
	signed, err := sign(f.key, payload)
	if err != nil {
		return nil, err
	}
	rc.SignedPayload = signed
	return rc, nil
}
