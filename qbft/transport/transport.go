// Package transport delivers signed consensus messages between validators.
// It carries bytes only; message validation belongs to the layer feeding the
// round core.
package transport

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/opalchain/qbft/qbft/messages"
)

// MessageReceiver accepts decoded inbound consensus messages. The round
// dispatcher implements it for proposal, prepare and commit; round-change
// messages go to the round-change manager.
type MessageReceiver interface {
	HandleProposalMessage(msg *messages.Proposal)
	HandlePrepareMessage(msg *messages.Prepare)
	HandleCommitMessage(msg *messages.Commit)
	HandleRoundChangeMessage(msg *messages.RoundChange)
}

// Loopback feeds multicast messages straight back to a receiver. Used for
// single-validator networks and tests.
//
// Messages authored by self are skipped, matching Gossip: the round core
// records its own votes locally, and the multicast happens while the round's
// lock is held, so a synchronous self-delivery would re-enter the handler.
type Loopback struct {
	self     common.Address
	receiver MessageReceiver
}

func NewLoopback(self common.Address, receiver MessageReceiver) *Loopback {
	return &Loopback{self: self, receiver: receiver}
}

func (l *Loopback) MulticastProposal(msg *messages.Proposal) {
	if msg.Author() == l.self {
		return
	}
	l.receiver.HandleProposalMessage(msg)
}

func (l *Loopback) MulticastPrepare(msg *messages.Prepare) {
	if msg.Author == l.self {
		return
	}
	l.receiver.HandlePrepareMessage(msg)
}

func (l *Loopback) MulticastCommit(msg *messages.Commit) {
	if msg.Author == l.self {
		return
	}
	l.receiver.HandleCommitMessage(msg)
}

func (l *Loopback) MulticastRoundChange(msg *messages.RoundChange) {
	if msg.Author() == l.self {
		return
	}
	l.receiver.HandleRoundChangeMessage(msg)
}
