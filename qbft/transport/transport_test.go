package transport

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/opalchain/qbft/common/logging"
	"github.com/opalchain/qbft/qbft/core"
	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/nodekey"
	"github.com/opalchain/qbft/qbft/types"
)

type countingReceiver struct {
	proposals    int
	prepares     int
	commits      int
	roundChanges int
}

func (r *countingReceiver) HandleProposalMessage(*messages.Proposal)       { r.proposals++ }
func (r *countingReceiver) HandlePrepareMessage(*messages.Prepare)         { r.prepares++ }
func (r *countingReceiver) HandleCommitMessage(*messages.Commit)           { r.commits++ }
func (r *countingReceiver) HandleRoundChangeMessage(*messages.RoundChange) { r.roundChanges++ }

func newTestFactory(t *testing.T) *messages.Factory {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return messages.NewFactory(nodekey.NewLocal(key))
}

func TestLoopbackDispatchesByType(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t)

	rid := types.NewRoundIdentifier(1, 0)
	block := types.NewBlock(&types.Header{Number: 1})

	receiver := &countingReceiver{}
	loopback := NewLoopback(common.HexToAddress("0x99"), receiver)

	proposal, err := factory.CreateProposal(rid, block, nil, nil)
	require.NoError(t, err)
	prepare, err := factory.CreatePrepare(rid, block.Hash())
	require.NoError(t, err)
	commit, err := factory.CreateCommit(rid, block.Hash(), []byte{1})
	require.NoError(t, err)
	roundChange, err := factory.CreateRoundChange(types.NewRoundIdentifier(1, 1), nil)
	require.NoError(t, err)

	loopback.MulticastProposal(proposal)
	loopback.MulticastPrepare(prepare)
	loopback.MulticastCommit(commit)
	loopback.MulticastRoundChange(roundChange)

	require.Equal(t, 1, receiver.proposals)
	require.Equal(t, 1, receiver.prepares)
	require.Equal(t, 1, receiver.commits)
	require.Equal(t, 1, receiver.roundChanges)
}

func TestLoopbackSkipsSelfAuthored(t *testing.T) {
	t.Parallel()

	factory := newTestFactory(t)

	rid := types.NewRoundIdentifier(1, 0)
	block := types.NewBlock(&types.Header{Number: 1})

	receiver := &countingReceiver{}
	loopback := NewLoopback(factory.Address(), receiver)

	proposal, err := factory.CreateProposal(rid, block, nil, nil)
	require.NoError(t, err)
	prepare, err := factory.CreatePrepare(rid, block.Hash())
	require.NoError(t, err)
	commit, err := factory.CreateCommit(rid, block.Hash(), []byte{1})
	require.NoError(t, err)
	roundChange, err := factory.CreateRoundChange(types.NewRoundIdentifier(1, 1), nil)
	require.NoError(t, err)

	loopback.MulticastProposal(proposal)
	loopback.MulticastPrepare(prepare)
	loopback.MulticastCommit(commit)
	loopback.MulticastRoundChange(roundChange)

	require.Zero(t, receiver.proposals)
	require.Zero(t, receiver.prepares)
	require.Zero(t, receiver.commits)
	require.Zero(t, receiver.roundChanges)
}

type roundDispatcher struct {
	round *core.Round
}

func (d *roundDispatcher) HandleProposalMessage(msg *messages.Proposal) {
	d.round.HandleProposalMessage(msg)
}

func (d *roundDispatcher) HandlePrepareMessage(msg *messages.Prepare) {
	d.round.HandlePrepareMessage(msg)
}

func (d *roundDispatcher) HandleCommitMessage(msg *messages.Commit) {
	d.round.HandleCommitMessage(msg)
}

func (d *roundDispatcher) HandleRoundChangeMessage(*messages.RoundChange) {}

type singleBlockCreator struct {
	block *types.Block
}

func (c *singleBlockCreator) CreateBlock(timestamp uint64, parent *types.Header) (*types.Block, error) {
	return c.block, nil
}

func (c *singleBlockCreator) CreateSealedBlock(block *types.Block, round uint64, seals [][]byte) *types.Block {
	return types.WriteCommitSeals(block, round, seals)
}

type countingImporter struct {
	imported int
}

func (i *countingImporter) ImportBlock(*types.Block) bool {
	i.imported++
	return true
}

// A single-validator network has quorum 1 and delivers its own multicasts
// through the loopback while the round's lock is held. The round must drive
// itself to import from its locally recorded votes without the loopback ever
// re-entering a handler.
func TestLoopbackSingleValidatorRound(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	local := nodekey.NewLocal(key)

	rid := types.NewRoundIdentifier(1, 0)
	block := types.NewBlock(&types.Header{Number: 1, Timestamp: 1700000000})
	importer := &countingImporter{}

	dispatcher := &roundDispatcher{}
	loopback := NewLoopback(local.Address(), dispatcher)

	round := core.NewRound(core.RoundParams{
		State:          core.NewRoundState(rid, 1),
		BlockCreator:   &singleBlockCreator{block: block},
		BlockInterface: core.NewHeaderBlockInterface(),
		Importer:       importer,
		NodeKey:        local,
		Factory:        messages.NewFactory(local),
		Transmitter:    loopback,
		Observers:      core.NewMinedObservers(),
		ParentHeader:   &types.Header{Number: 0},
		Logger:         logging.NewLogger("transport_test"),
	})
	dispatcher.round = round

	round.StartRoundWith(messages.EmptyRoundChangeArtifacts(), 1700000001)

	require.Equal(t, 1, importer.imported)
}
