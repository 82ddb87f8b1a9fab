package model

import (
	"fmt"
	"math"

	"github.com/onflow/cadence"
)

// Amount is a token amount in the smallest denomination (10^-8 FLOW, the UFix64 scale).
type Amount uint64

// MaxAmount is the largest amount a postgres bigint column holds.
const MaxAmount = Amount(math.MaxInt64)

// Add returns a+b, or false when the sum exceeds MaxAmount.
func (a Amount) Add(b Amount) (Amount, bool) {
	if a > MaxAmount || b > MaxAmount-a {
		return 0, false
	}
	return a + b, true
}

// Display renders the amount as a fixed point decimal, e.g. 1000000000 -> "10.00000000".
func (a Amount) Display() string {
	return cadence.UFix64(a).String()
}

func ParseAmount(decimal string) (Amount, error) {
	v, err := cadence.NewUFix64(decimal)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", decimal, err)
	}
	return Amount(v), nil
}
