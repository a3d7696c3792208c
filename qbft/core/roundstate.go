package core

import (
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/types"
)

// RoundState is the evidence ledger for a single round: the accepted
// proposal, the prepare and commit votes received so far, and the quorum
// predicates derived from them. It knows nothing about networking or
// cryptography, and it is never reused across rounds.
//
// Votes are recorded even before a proposal is accepted; out-of-order
// delivery is normal under partial synchrony. The quorum predicates still
// require an accepted proposal before reporting prepared or committed.
type RoundState struct {
	roundID         types.RoundIdentifier
	quorumThreshold int

	proposal *messages.Proposal
	prepares map[common.Address]*messages.Prepare
	commits  map[common.Address]*messages.Commit

	// Latched on their false-to-true transitions; monotone for the lifetime
	// of the state.
	prepared  bool
	committed bool
}

func NewRoundState(roundID types.RoundIdentifier, quorumThreshold int) *RoundState {
	return &RoundState{
		roundID:         roundID,
		quorumThreshold: quorumThreshold,
		prepares:        make(map[common.Address]*messages.Prepare),
		commits:         make(map[common.Address]*messages.Commit),
	}
}

func (s *RoundState) RoundIdentifier() types.RoundIdentifier {
	return s.roundID
}

// SetProposedBlock accepts the first proposal for this round. Later
// proposals are rejected even when hash-identical. Content validation is the
// caller's responsibility and happens before this call.
func (s *RoundState) SetProposedBlock(proposal *messages.Proposal) bool {
	if s.proposal != nil {
		return false
	}
	if proposal.RoundIdentifier() != s.roundID {
		return false
	}
	s.proposal = proposal
	s.updatePredicates()
	return true
}

// AddPrepareMessage records a prepare vote, one per author. Votes for a
// different round are dropped; the dispatcher filters by round already, this
// is a defensive backstop.
func (s *RoundState) AddPrepareMessage(msg *messages.Prepare) {
	if msg.Payload.RoundID != s.roundID {
		return
	}
	if _, seen := s.prepares[msg.Author]; seen {
		return
	}
	s.prepares[msg.Author] = msg
	s.updatePredicates()
}

// AddCommitMessage records a commit vote and its commit seal, one per author.
func (s *RoundState) AddCommitMessage(msg *messages.Commit) {
	if msg.Payload.RoundID != s.roundID {
		return
	}
	if _, seen := s.commits[msg.Author]; seen {
		return
	}
	s.commits[msg.Author] = msg
	s.updatePredicates()
}

func (s *RoundState) updatePredicates() {
	if s.proposal == nil {
		return
	}
	if !s.prepared && len(s.prepares) >= s.quorumThreshold {
		s.prepared = true
	}
	if !s.committed && len(s.commits) >= s.quorumThreshold {
		s.committed = true
	}
}

func (s *RoundState) IsPrepared() bool {
	return s.prepared
}

func (s *RoundState) IsCommitted() bool {
	return s.committed
}

// Proposal returns the accepted proposal message, or nil.
func (s *RoundState) Proposal() *messages.Proposal {
	return s.proposal
}

// ProposedBlock returns the accepted block, or nil when no proposal has been
// accepted yet.
func (s *RoundState) ProposedBlock() *types.Block {
	if s.proposal == nil {
		return nil
	}
	return s.proposal.Block()
}

// ConstructPreparedCertificate snapshots the prepared evidence: the accepted
// block plus the prepare votes held right now, in author order. Returns nil
// unless the state is prepared.
func (s *RoundState) ConstructPreparedCertificate() *messages.PreparedCertificate {
	if !s.prepared {
		return nil
	}
	prepares := make([]*messages.Prepare, 0, len(s.prepares))
	for _, author := range s.sortedAuthors(maps.Keys(s.prepares)) {
		prepares = append(prepares, s.prepares[author])
	}
	return &messages.PreparedCertificate{
		Block:    s.ProposedBlock(),
		Round:    s.roundID.Round,
		Prepares: prepares,
	}
}

// CommitSeals returns the collected commit seals in author-address order, so
// every party re-deriving the sealed block arrives at identical bytes.
func (s *RoundState) CommitSeals() [][]byte {
	seals := make([][]byte, 0, len(s.commits))
	for _, author := range s.sortedAuthors(maps.Keys(s.commits)) {
		seals = append(seals, s.commits[author].Payload.CommitSeal)
	}
	return seals
}

func (s *RoundState) sortedAuthors(authors func(func(common.Address) bool)) []common.Address {
	return slices.SortedFunc(authors, func(a, b common.Address) int {
		return a.Cmp(b)
	})
}
