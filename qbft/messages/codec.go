package messages

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// MessageType tags the wire envelope.
type MessageType uint8

const (
	MessageTypeProposal MessageType = iota
	MessageTypePrepare
	MessageTypeCommit
	MessageTypeRoundChange
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeProposal:
		return "PROPOSAL"
	case MessageTypePrepare:
		return "PREPARE"
	case MessageTypeCommit:
		return "COMMIT"
	case MessageTypeRoundChange:
		return "ROUND_CHANGE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// envelope is the gossip wire frame: a type tag over the RLP encoding of the
// tagged message.
type envelope struct {
	Type uint8
	Data []byte
}

func encode(t MessageType, msg any) ([]byte, error) {
	data, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t, err)
	}
	return rlp.EncodeToBytes(&envelope{Type: uint8(t), Data: data})
}

func EncodeProposal(p *Proposal) ([]byte, error) {
	return encode(MessageTypeProposal, p)
}

func EncodePrepare(p *Prepare) ([]byte, error) {
	return encode(MessageTypePrepare, p)
}

func EncodeCommit(c *Commit) ([]byte, error) {
	return encode(MessageTypeCommit, c)
}

func EncodeRoundChange(rc *RoundChange) ([]byte, error) {
	return encode(MessageTypeRoundChange, rc)
}

// Decoded holds one inbound message; exactly the field matching Type is set.
type Decoded struct {
	Type        MessageType
	Proposal    *Proposal
	Prepare     *Prepare
	Commit      *Commit
	RoundChange *RoundChange
}

func Decode(raw []byte) (*Decoded, error) {
	var env envelope
	if err := rlp.DecodeBytes(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	out := &Decoded{Type: MessageType(env.Type)}
	var err error
	switch out.Type {
	case MessageTypeProposal:
		out.Proposal = new(Proposal)
		err = rlp.DecodeBytes(env.Data, out.Proposal)
	case MessageTypePrepare:
		out.Prepare = new(Prepare)
		err = rlp.DecodeBytes(env.Data, out.Prepare)
	case MessageTypeCommit:
		out.Commit = new(Commit)
		err = rlp.DecodeBytes(env.Data, out.Commit)
	case MessageTypeRoundChange:
		out.RoundChange = new(RoundChange)
		err = rlp.DecodeBytes(env.Data, out.RoundChange)
	default:
		return nil, fmt.Errorf("unknown message type %d", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", out.Type, err)
	}
	return out, nil
}
