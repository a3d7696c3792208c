package core

import (
	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/types"
)

// BlockCreator builds candidate and sealed blocks. One concrete adapter per
// chain variant implements it; the round core depends only on this surface.
type BlockCreator interface {
	// CreateBlock builds a fresh candidate on top of parent.
	CreateBlock(timestamp uint64, parent *types.Header) (*types.Block, error)

	// CreateSealedBlock stamps the block with the finalizing round number and
	// the quorum of commit seals. Deterministic given identical inputs.
	CreateSealedBlock(block *types.Block, round uint64, commitSeals [][]byte) *types.Block
}

// BlockInterface rewrites the round number inside a block, preserving all
// other content.
type BlockInterface interface {
	ReplaceRoundInBlock(block *types.Block, round uint64) *types.Block
}

// BlockImporter submits a sealed block to the canonical chain. A false
// return means the chain rejected it.
type BlockImporter interface {
	ImportBlock(block *types.Block) bool
}

// Transmitter is fire-and-forget multicast to the validator set. No delivery
// acknowledgement is awaited.
type Transmitter interface {
	MulticastProposal(proposal *messages.Proposal)
	MulticastPrepare(prepare *messages.Prepare)
	MulticastCommit(commit *messages.Commit)
}

// headerBlockInterface is the standard rewriter for header-carried rounds.
type headerBlockInterface struct{}

// NewHeaderBlockInterface returns the BlockInterface for blocks whose round
// number lives in the header.
func NewHeaderBlockInterface() BlockInterface {
	return headerBlockInterface{}
}

func (headerBlockInterface) ReplaceRoundInBlock(block *types.Block, round uint64) *types.Block {
	return types.ReplaceRound(block, round)
}
