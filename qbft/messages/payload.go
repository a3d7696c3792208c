// Package messages defines the signed QBFT message types exchanged between
// validators and the factory that produces them for the local identity.
//
// Authorship and signature validity of inbound messages are checked by the
// layer feeding the round core; the core itself consumes them as
// pre-authenticated input.
package messages

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/opalchain/qbft/qbft/types"
)

// ProposalPayload names the candidate block for a round (PRE-PREPARE).
type ProposalPayload struct {
	RoundID types.RoundIdentifier
	Block   *types.Block
}

// PreparePayload is a vote that the proposal identified by Digest was
// received and accepted.
type PreparePayload struct {
	RoundID types.RoundIdentifier
	Digest  common.Hash
}

// CommitPayload votes to finalize the block identified by Digest. CommitSeal
// is a separate signature over the hash of the block with its round rewritten
// to the commit round; it is what authorizes chain import, distinct from the
// vote's own signature.
type CommitPayload struct {
	RoundID    types.RoundIdentifier
	Digest     common.Hash
	CommitSeal []byte
}

// PreparedRoundMetadata reports the latest round in which the sender
// prepared, and for which block.
type PreparedRoundMetadata struct {
	PreparedRound     uint64
	PreparedBlockHash common.Hash
}

// RoundChangePayload asks to abandon the current round and move to
// RoundID.Round, reporting any previously prepared state.
type RoundChangePayload struct {
	RoundID  types.RoundIdentifier
	Prepared *PreparedRoundMetadata `rlp:"nil"`
}

// SignedData binds an author to a payload. Immutable once constructed.
type SignedData[T any] struct {
	Payload   T
	Author    common.Address
	Signature []byte
}

type (
	Prepare = SignedData[PreparePayload]
	Commit  = SignedData[CommitPayload]
)

// Proposal carries the signed proposal payload plus the round-change and
// prepare justification for rounds above zero.
type Proposal struct {
	SignedPayload SignedData[ProposalPayload]
	RoundChanges  []*RoundChange
	Prepares      []*Prepare
}

func (p *Proposal) RoundIdentifier() types.RoundIdentifier {
	return p.SignedPayload.Payload.RoundID
}

func (p *Proposal) Block() *types.Block {
	return p.SignedPayload.Payload.Block
}

func (p *Proposal) Author() common.Address {
	return p.SignedPayload.Author
}

// RoundChange carries the signed round-change payload plus, when the sender
// had prepared, the prepared block and the prepare votes backing it.
type RoundChange struct {
	SignedPayload SignedData[RoundChangePayload]
	PreparedBlock *types.Block `rlp:"nil"`
	Prepares      []*Prepare
}

func (rc *RoundChange) RoundIdentifier() types.RoundIdentifier {
	return rc.SignedPayload.Payload.RoundID
}

func (rc *RoundChange) Author() common.Address {
	return rc.SignedPayload.Author
}

// PreparedCertificate returns the prepared evidence piggybacked on this
// message, or nil when the sender had not prepared.
func (rc *RoundChange) PreparedCertificate() *PreparedCertificate {
	meta := rc.SignedPayload.Payload.Prepared
	if meta == nil || rc.PreparedBlock == nil {
		return nil
	}
	return &PreparedCertificate{
		Block:    rc.PreparedBlock,
		Round:    meta.PreparedRound,
		Prepares: rc.Prepares,
	}
}

// PayloadDigest is the 32-byte digest message signatures commit to:
// keccak256 of the RLP encoding of the payload.
func PayloadDigest(payload any) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}
