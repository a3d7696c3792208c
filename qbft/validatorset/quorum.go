// Package validatorset resolves the validator address set from the
// validator smart contract and derives byzantine quorum thresholds from it.
package validatorset

// FaultTolerance returns f, the number of byzantine validators a set of n
// tolerates.
func FaultTolerance(n int) int {
	return (n - 1) / 3
}

// QuorumSize returns the minimum matching-vote count for a set of n
// validators: ceil(2n/3).
func QuorumSize(n int) int {
	return (2*n + 2) / 3
}
