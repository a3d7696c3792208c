// Package core implements the per-round QBFT engine: the round state machine
// that accepts or produces a proposal, collects prepare and commit quorums,
// and triggers import of the finalized block.
package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opalchain/qbft/common/logging"
	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/nodekey"
	"github.com/opalchain/qbft/qbft/types"
)

// RoundParams collects the collaborators a Round is wired with.
type RoundParams struct {
	State          *RoundState
	BlockCreator   BlockCreator
	BlockInterface BlockInterface
	Importer       BlockImporter
	NodeKey        nodekey.NodeKey
	Factory        *messages.Factory
	Transmitter    Transmitter
	Observers      *MinedObservers
	Timer          *RoundTimer
	ParentHeader   *types.Header
	Logger         zerolog.Logger
	Metrics        *MetricsHandler
}

// Round drives one round of one height. Handlers are serialized by an
// internal mutex so recording a vote and firing the resulting side effect is
// atomic with respect to other messages for the same round; distinct rounds
// share no mutable state and proceed independently.
//
// Construction is pure. Start arms the round timer; a round built for
// inspection or testing never has to tick.
type Round struct {
	mu sync.Mutex

	state          *RoundState
	blockCreator   BlockCreator
	blockInterface BlockInterface
	importer       BlockImporter
	nodeKey        nodekey.NodeKey
	factory        *messages.Factory
	transmitter    Transmitter
	observers      *MinedObservers
	timer          *RoundTimer
	parentHeader   *types.Header
	logger         zerolog.Logger
	metrics        *MetricsHandler
}

func NewRound(params RoundParams) *Round {
	rid := params.State.RoundIdentifier()
	logger := params.Logger.With().
		Uint64(logging.FieldHeight, rid.Height).
		Uint64(logging.FieldRound, rid.Round).
		Logger()

	return &Round{
		state:          params.State,
		blockCreator:   params.BlockCreator,
		blockInterface: params.BlockInterface,
		importer:       params.Importer,
		nodeKey:        params.NodeKey,
		factory:        params.Factory,
		transmitter:    params.Transmitter,
		observers:      params.Observers,
		timer:          params.Timer,
		parentHeader:   params.ParentHeader,
		logger:         logger,
		metrics:        params.Metrics,
	}
}

// Start arms the round timer and marks the round live.
func (r *Round) Start() {
	if r.timer != nil {
		r.timer.Start(r.RoundIdentifier())
	}
	r.metrics.RecordRoundStart(context.Background(), r.RoundIdentifier())
}

func (r *Round) RoundIdentifier() types.RoundIdentifier {
	return r.state.RoundIdentifier()
}

// CreateBlock builds a fresh candidate block on the round's parent header.
func (r *Round) CreateBlock(timestamp uint64) (*types.Block, error) {
	r.logger.Debug().Msg("Creating proposed block")
	return r.blockCreator.CreateBlock(timestamp, r.parentHeader)
}

// StartRoundWith begins the round as the expected proposer. With no prepared
// certificate among the artifacts a fresh block is built; otherwise the best
// prepared block is re-proposed with its round number rewritten to this
// round, so previously prepared work survives the round change.
func (r *Round) StartRoundWith(artifacts messages.RoundChangeArtifacts, timestamp uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		block    *types.Block
		prepares []*messages.Prepare
	)
	if best := artifacts.BestPreparedCertificate(); best == nil {
		r.logger.Debug().Msg("Proposing new block")
		created, err := r.blockCreator.CreateBlock(timestamp, r.parentHeader)
		if err != nil {
			r.logger.Error().Err(err).Msg("Failed to create block, waiting for next round")
			return
		}
		block = created
	} else {
		r.logger.Debug().
			Uint64("preparedRound", best.Round).
			Msg("Proposing block from prepared certificate")
		block = r.blockInterface.ReplaceRoundInBlock(best.Block, r.RoundIdentifier().Round)
		prepares = best.Prepares
	}

	r.logger.Debug().
		Stringer(logging.FieldBlockHash, block.Hash()).
		Msg("Proposal block chosen")

	r.updateStateWithProposalAndTransmit(block, artifacts.RoundChanges(), prepares)
}

func (r *Round) updateStateWithProposalAndTransmit(
	block *types.Block,
	roundChanges []*messages.RoundChange,
	prepares []*messages.Prepare,
) {
	proposal, err := r.factory.CreateProposal(r.RoundIdentifier(), block, roundChanges, prepares)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create a signed proposal, waiting for next round")
		return
	}

	r.transmitter.MulticastProposal(proposal)
	r.metrics.IncSentMessage(context.Background(), messages.MessageTypeProposal)

	if r.updateStateWithProposedBlock(proposal) {
		r.sendPrepare(block)
	}
}

// HandleProposalMessage processes an inbound proposal. The first proposal
// for the round wins; acceptance emits the local prepare vote through the
// same path the proposer's own replay uses.
func (r *Round) HandleProposalMessage(msg *messages.Proposal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug().
		Stringer(logging.FieldAuthor, msg.Author()).
		Msg("Received a proposal message")

	if r.updateStateWithProposedBlock(msg) {
		r.sendPrepare(msg.Block())
	}
}

// HandlePrepareMessage records a peer's prepare vote, broadcasting the local
// commit on the prepared transition.
func (r *Round) HandlePrepareMessage(msg *messages.Prepare) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug().
		Stringer(logging.FieldAuthor, msg.Author).
		Msg("Received a prepare message")

	r.peerIsPrepared(msg)
}

// HandleCommitMessage records a peer's commit vote, importing the sealed
// block on the committed transition.
func (r *Round) HandleCommitMessage(msg *messages.Commit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug().
		Stringer(logging.FieldAuthor, msg.Author).
		Msg("Received a commit message")

	r.peerIsCommitted(msg)
}

// ConstructPreparedCertificate exposes the round's prepared evidence to the
// round-change subsystem when this round is being abandoned.
func (r *Round) ConstructPreparedCertificate() *messages.PreparedCertificate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ConstructPreparedCertificate()
}

// updateStateWithProposedBlock is the single accept path shared by the local
// proposer replay and inbound proposals. On acceptance it records the local
// commit vote so a later prepared transition only has to broadcast.
func (r *Round) updateStateWithProposedBlock(msg *messages.Proposal) bool {
	wasPrepared := r.state.IsPrepared()
	wasCommitted := r.state.IsCommitted()

	if !r.state.SetProposedBlock(msg) {
		return false
	}

	block := r.state.ProposedBlock()
	commitSeal, err := r.createCommitSeal(block)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to construct commit seal")
		return true
	}

	localCommit, err := r.factory.CreateCommit(r.RoundIdentifier(), block.Hash(), commitSeal)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create signed commit message")
		return true
	}

	// Accepting the proposal can itself complete the prepare quorum when
	// enough votes arrived ahead of it.
	if wasPrepared != r.state.IsPrepared() {
		r.logger.Debug().Msg("Sending commit message")
		r.transmitter.MulticastCommit(localCommit)
		r.metrics.IncSentMessage(context.Background(), messages.MessageTypeCommit)
	}

	// The local commit vote is recorded here, on acceptance. A prepare vote
	// is not: this may be our own proposal, and the proposer's prepare is
	// emitted by the caller through sendPrepare.
	r.state.AddCommitMessage(localCommit)

	if wasCommitted != r.state.IsCommitted() {
		r.importBlockToChain()
	}

	return true
}

func (r *Round) sendPrepare(block *types.Block) {
	r.logger.Debug().Msg("Sending prepare message")

	prepare, err := r.factory.CreatePrepare(r.RoundIdentifier(), block.Hash())
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create signed prepare message")
		return
	}
	r.peerIsPrepared(prepare)
	r.transmitter.MulticastPrepare(prepare)
	r.metrics.IncSentMessage(context.Background(), messages.MessageTypePrepare)
}

func (r *Round) peerIsPrepared(msg *messages.Prepare) {
	wasPrepared := r.state.IsPrepared()
	r.state.AddPrepareMessage(msg)
	if wasPrepared == r.state.IsPrepared() {
		return
	}

	block := r.state.ProposedBlock()
	commitSeal, err := r.createCommitSeal(block)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to construct commit seal")
		return
	}
	commit, err := r.factory.CreateCommit(r.RoundIdentifier(), block.Hash(), commitSeal)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to create signed commit message")
		return
	}

	r.logger.Debug().Msg("Sending commit message")
	// The local commit vote was recorded on block acceptance and is not
	// added again here.
	r.transmitter.MulticastCommit(commit)
	r.metrics.IncSentMessage(context.Background(), messages.MessageTypeCommit)
}

func (r *Round) peerIsCommitted(msg *messages.Commit) {
	wasCommitted := r.state.IsCommitted()
	r.state.AddCommitMessage(msg)
	if wasCommitted != r.state.IsCommitted() {
		r.importBlockToChain()
	}
}

// importBlockToChain assembles the sealed block and submits it for import.
// Failure is terminal for this round: it is logged and recovery is left to a
// future round or resynchronization.
func (r *Round) importBlockToChain() {
	rid := r.RoundIdentifier()
	sealed := r.blockCreator.CreateSealedBlock(
		r.state.ProposedBlock(),
		rid.Round,
		r.state.CommitSeals(),
	)

	event := r.logger.Debug()
	if rid.Round > 0 {
		event = r.logger.Info()
	}
	event.
		Stringer(logging.FieldBlockHash, sealed.Hash()).
		Uint64(logging.FieldBlockNumber, sealed.Number()).
		Msg("Importing proposed block to chain")

	if !r.importer.ImportBlock(sealed) {
		r.logger.Error().
			Stringer(logging.FieldBlockHash, sealed.Hash()).
			Uint64(logging.FieldBlockNumber, sealed.Number()).
			Msg("Failed to import proposed block to chain")
		return
	}

	if r.timer != nil {
		r.timer.Stop()
	}
	r.metrics.RecordImportedBlock(context.Background(), rid)
	r.observers.Notify(sealed)
}

// createCommitSeal signs the hash of the block with its round rewritten to
// the current round, binding the seal to finalization in this specific round.
func (r *Round) createCommitSeal(block *types.Block) ([]byte, error) {
	commitBlock := r.blockInterface.ReplaceRoundInBlock(block, r.RoundIdentifier().Round)
	return r.nodeKey.Sign(commitBlock.Hash())
}
