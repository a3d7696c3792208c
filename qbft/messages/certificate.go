package messages

import (
	"github.com/opalchain/qbft/qbft/types"
)

// PreparedCertificate proves a block was prepared in some round: the block
// plus the quorum of prepare votes that justified it. It is used to justify
// re-proposing the same block after a round change.
type PreparedCertificate struct {
	Block    *types.Block
	Round    uint64
	Prepares []*Prepare
}

// RoundChangeArtifacts aggregates the round-change messages that justify
// starting a new round, together with the best (highest prepared round)
// certificate reported across them, if any.
type RoundChangeArtifacts struct {
	roundChanges []*RoundChange
	best         *PreparedCertificate
}

// CreateRoundChangeArtifacts selects the certificate with the highest
// prepared round among the given round-change messages.
func CreateRoundChangeArtifacts(roundChanges []*RoundChange) RoundChangeArtifacts {
	var best *PreparedCertificate
	for _, rc := range roundChanges {
		cert := rc.PreparedCertificate()
		if cert == nil {
			continue
		}
		if best == nil || cert.Round > best.Round {
			best = cert
		}
	}
	return RoundChangeArtifacts{roundChanges: roundChanges, best: best}
}

// EmptyRoundChangeArtifacts is used when proposing round zero, where no
// round-change justification exists.
func EmptyRoundChangeArtifacts() RoundChangeArtifacts {
	return RoundChangeArtifacts{}
}

func (a RoundChangeArtifacts) RoundChanges() []*RoundChange {
	return a.roundChanges
}

// BestPreparedCertificate returns the highest-round prepared certificate
// seen across peers, or nil when no peer had prepared.
func (a RoundChangeArtifacts) BestPreparedCertificate() *PreparedCertificate {
	return a.best
}
