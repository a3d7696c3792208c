package messages

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opalchain/qbft/qbft/types"
)

func TestCodecProposalWithJustification(t *testing.T) {
	t.Parallel()

	rid := types.NewRoundIdentifier(9, 4)
	block := newBlock(9, 4)
	preparedBlock := newBlock(9, 1)

	prepare, err := newFactory(t).CreatePrepare(types.NewRoundIdentifier(9, 1), preparedBlock.Hash())
	require.NoError(t, err)
	cert := &PreparedCertificate{Block: preparedBlock, Round: 1, Prepares: []*Prepare{prepare}}

	rc, err := newFactory(t).CreateRoundChange(rid, cert)
	require.NoError(t, err)

	proposal, err := newFactory(t).CreateProposal(rid, block, []*RoundChange{rc}, cert.Prepares)
	require.NoError(t, err)

	raw, err := EncodeProposal(proposal)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, MessageTypeProposal, decoded.Type)
	require.NotNil(t, decoded.Proposal)

	got := decoded.Proposal
	require.Equal(t, rid, got.RoundIdentifier())
	require.Equal(t, block.Hash(), got.Block().Hash())
	require.Equal(t, proposal.Author(), got.Author())
	require.Len(t, got.RoundChanges, 1)
	require.Len(t, got.Prepares, 1)
	require.Equal(t, preparedBlock.Hash(), got.RoundChanges[0].PreparedBlock.Hash())
}

func TestCodecCommitRoundTrip(t *testing.T) {
	t.Parallel()

	rid := types.NewRoundIdentifier(3, 0)
	block := newBlock(3, 0)
	commit, err := newFactory(t).CreateCommit(rid, block.Hash(), []byte{9, 9})
	require.NoError(t, err)

	raw, err := EncodeCommit(commit)
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	require.Equal(t, MessageTypeCommit, decoded.Type)
	require.Equal(t, commit.Payload, decoded.Commit.Payload)
	require.Equal(t, commit.Author, decoded.Commit.Author)
	require.Equal(t, commit.Signature, decoded.Commit.Signature)
}

func TestCodecRejectsUnknownType(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte{0x01, 0x02})
	require.Error(t, err)
}
