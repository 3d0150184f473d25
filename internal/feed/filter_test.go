package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSwapCandidate(t *testing.T) {
	cases := []struct {
		name string
		logs []string
		want bool
	}{
		{
			"jupiter invoke",
			[]string{"Program JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4 invoke [1]"},
			true,
		},
		{
			"raydium amm invoke",
			[]string{"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]"},
			true,
		},
		{
			"pumpfun buy marker",
			[]string{"Program log: Instruction: Buy"},
			true,
		},
		{
			"sell marker",
			[]string{"Program log: Instruction: Sell"},
			true,
		},
		{
			"generic swap marker deep in batch",
			[]string{"Program ComputeBudget111 invoke [1]", "Program log: Instruction: Swap"},
			true,
		},
		{
			"plain token transfer",
			[]string{"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA invoke [1]", "Program log: Instruction: Transfer"},
			false,
		},
		{
			"empty logs",
			nil,
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isSwapCandidate(tc.logs))
		})
	}
}
