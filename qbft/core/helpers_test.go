package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/nodekey"
	"github.com/opalchain/qbft/qbft/types"
)

func newTestBlock(height, round uint64) *types.Block {
	return types.NewBlock(&types.Header{
		Number:     height,
		ParentHash: common.HexToHash("0xdead"),
		Coinbase:   common.HexToAddress("0x42"),
		StateRoot:  common.HexToHash("0x01"),
		TxRoot:     common.HexToHash("0x02"),
		Timestamp:  1700000000,
		Round:      round,
	})
}

func newTestKey(t *testing.T) nodekey.NodeKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return nodekey.NewLocal(key)
}

func newTestFactory(t *testing.T) *messages.Factory {
	t.Helper()
	return messages.NewFactory(newTestKey(t))
}

func newSignedProposal(t *testing.T, rid types.RoundIdentifier, block *types.Block) *messages.Proposal {
	t.Helper()
	proposal, err := newTestFactory(t).CreateProposal(rid, block, nil, nil)
	require.NoError(t, err)
	return proposal
}

func newSignedPrepare(t *testing.T, f *messages.Factory, rid types.RoundIdentifier, digest common.Hash) *messages.Prepare {
	t.Helper()
	prepare, err := f.CreatePrepare(rid, digest)
	require.NoError(t, err)
	return prepare
}

func newSignedCommit(t *testing.T, f *messages.Factory, rid types.RoundIdentifier, digest common.Hash) *messages.Commit {
	t.Helper()
	commit, err := f.CreateCommit(rid, digest, []byte{0xbe, 0xef})
	require.NoError(t, err)
	return commit
}
