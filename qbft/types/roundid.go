package types

import "fmt"

// RoundIdentifier names exactly one round instance: one attempt at the given
// chain height to agree on a block.
type RoundIdentifier struct {
	Height uint64
	Round  uint64
}

func NewRoundIdentifier(height, round uint64) RoundIdentifier {
	return RoundIdentifier{Height: height, Round: round}
}

// Cmp orders identifiers by height, then by round.
func (r RoundIdentifier) Cmp(other RoundIdentifier) int {
	switch {
	case r.Height < other.Height:
		return -1
	case r.Height > other.Height:
		return 1
	case r.Round < other.Round:
		return -1
	case r.Round > other.Round:
		return 1
	default:
		return 0
	}
}

func (r RoundIdentifier) String() string {
	return fmt.Sprintf("%d/%d", r.Height, r.Round)
}
