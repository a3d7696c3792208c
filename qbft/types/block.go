package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is the consensus-visible part of a candidate block. CommitSeals is
// populated only on the sealed block produced after commit quorum and is
// excluded from the hash, so sealing never changes a block's identity while
// rewriting the round does.
type Header struct {
	Number     uint64
	ParentHash common.Hash
	Coinbase   common.Address
	StateRoot  common.Hash
	TxRoot     common.Hash
	Timestamp  uint64
	Round      uint64
	Extra      []byte

	CommitSeals [][]byte
}

// Block is a candidate chain unit. The round core treats its content as
// opaque and compares blocks by hash only.
type Block struct {
	Header *Header
}

func NewBlock(header *Header) *Block {
	return &Block{Header: header}
}

// hashableHeader is the RLP layout the block hash commits to. It deliberately
// omits the commit seals.
type hashableHeader struct {
	Number     uint64
	ParentHash common.Hash
	Coinbase   common.Address
	StateRoot  common.Hash
	TxRoot     common.Hash
	Timestamp  uint64
	Round      uint64
	Extra      []byte
}

// Hash returns the content hash of the block: keccak256 of the RLP encoding
// of the header without commit seals.
func (b *Block) Hash() common.Hash {
	h := b.Header
	enc, err := rlp.EncodeToBytes(&hashableHeader{
		Number:     h.Number,
		ParentHash: h.ParentHash,
		Coinbase:   h.Coinbase,
		StateRoot:  h.StateRoot,
		TxRoot:     h.TxRoot,
		Timestamp:  h.Timestamp,
		Round:      h.Round,
		Extra:      h.Extra,
	})
	if err != nil {
		// All header fields have static RLP encodings; this cannot fail.
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

func (b *Block) Number() uint64 {
	return b.Header.Number
}

func (b *Block) Round() uint64 {
	return b.Header.Round
}

func (h *Header) copy() *Header {
	c := *h
	if h.Extra != nil {
		c.Extra = append([]byte(nil), h.Extra...)
	}
	if h.CommitSeals != nil {
		c.CommitSeals = make([][]byte, len(h.CommitSeals))
		for i, s := range h.CommitSeals {
			c.CommitSeals[i] = append([]byte(nil), s...)
		}
	}
	return &c
}

// ReplaceRound returns a copy of the block with only the round number
// rewritten. All other content is preserved.
func ReplaceRound(b *Block, round uint64) *Block {
	header := b.Header.copy()
	header.Round = round
	return &Block{Header: header}
}

// WriteCommitSeals returns a sealed copy of the block carrying the given
// round number and commit seals. The block hash is unaffected by the seals.
func WriteCommitSeals(b *Block, round uint64, seals [][]byte) *Block {
	header := b.Header.copy()
	header.Round = round
	header.CommitSeals = make([][]byte, len(seals))
	for i, s := range seals {
		header.CommitSeals[i] = append([]byte(nil), s...)
	}
	return &Block{Header: header}
}
