package transport

import (
	"context"
	"errors"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/opalchain/qbft/common/logging"
	"github.com/opalchain/qbft/qbft/messages"
)

// DefaultTopic is the gossip topic consensus messages travel on.
const DefaultTopic = "/qbft/1.0"

// Gossip multicasts consensus messages over a libp2p pubsub topic. Publish
// is fire-and-forget: failures are logged and the protocol relies on
// retransmission and round changes for liveness.
type Gossip struct {
	ctx    context.Context
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	self   peer.ID
	logger zerolog.Logger
}

// NewGossip joins the topic and subscribes. ctx bounds the lifetime of all
// publishes and the receive loop.
func NewGossip(
	ctx context.Context,
	ps *pubsub.PubSub,
	self peer.ID,
	topicName string,
	logger zerolog.Logger,
) (*Gossip, error) {
	topic, err := ps.Join(topicName)
	if err != nil {
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Gossip{
		ctx:    ctx,
		topic:  topic,
		sub:    sub,
		self:   self,
		logger: logger.With().Str(logging.FieldTopic, topicName).Logger(),
	}, nil
}

// Run consumes the subscription until ctx is cancelled, dispatching decoded
// messages to the receiver. Messages published by this node are skipped: the
// round core records its own votes locally.
func (g *Gossip) Run(ctx context.Context, receiver MessageReceiver) error {
	defer g.sub.Cancel()

	for {
		msg, err := g.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if msg.ReceivedFrom == g.self {
			continue
		}

		decoded, err := messages.Decode(msg.GetData())
		if err != nil {
			g.logger.Error().Err(err).
				Stringer("peer", msg.ReceivedFrom).
				Msg("Failed to decode consensus message")
			continue
		}

		g.logger.Debug().
			Stringer(logging.FieldType, decoded.Type).
			Stringer("peer", msg.ReceivedFrom).
			Msg("Validator message received")

		switch decoded.Type {
		case messages.MessageTypeProposal:
			receiver.HandleProposalMessage(decoded.Proposal)
		case messages.MessageTypePrepare:
			receiver.HandlePrepareMessage(decoded.Prepare)
		case messages.MessageTypeCommit:
			receiver.HandleCommitMessage(decoded.Commit)
		case messages.MessageTypeRoundChange:
			receiver.HandleRoundChangeMessage(decoded.RoundChange)
		}
	}
}

func (g *Gossip) publish(t messages.MessageType, data []byte, err error) {
	if err != nil {
		g.logger.Error().Err(err).
			Stringer(logging.FieldType, t).
			Msg("Failed to encode consensus message")
		return
	}
	if err := g.topic.Publish(g.ctx, data); err != nil {
		g.logger.Error().Err(err).
			Stringer(logging.FieldType, t).
			Msg("Failed to gossip consensus message")
	}
}

func (g *Gossip) MulticastProposal(msg *messages.Proposal) {
	data, err := messages.EncodeProposal(msg)
	g.publish(messages.MessageTypeProposal, data, err)
}

func (g *Gossip) MulticastPrepare(msg *messages.Prepare) {
	data, err := messages.EncodePrepare(msg)
	g.publish(messages.MessageTypePrepare, data, err)
}

func (g *Gossip) MulticastCommit(msg *messages.Commit) {
	data, err := messages.EncodeCommit(msg)
	g.publish(messages.MessageTypeCommit, data, err)
}

func (g *Gossip) MulticastRoundChange(msg *messages.RoundChange) {
	data, err := messages.EncodeRoundChange(msg)
	g.publish(messages.MessageTypeRoundChange, data, err)
}
