package feed

import "strings"

// Program IDs of the swap venues the feed recognizes. A pushed log batch is
// only decoded when one of these programs appears in it, or when the logs
// carry an explicit swap instruction marker.
const (
	JupiterV6Program   = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMMProgram  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCPMMProgram = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	PumpFunProgram     = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

var swapPrograms = []string{
	JupiterV6Program,
	RaydiumAMMProgram,
	RaydiumCPMMProgram,
	PumpFunProgram,
}

var swapInstructionMarkers = []string{
	"Instruction: Swap",
	"Instruction: Buy",
	"Instruction: Sell",
}

// isSwapCandidate reports whether a pushed log batch looks like a swap worth
// decoding. This is a cheap pre-filter; the decoder still decides whether the
// transaction actually moved the tracked token.
func isSwapCandidate(logs []string) bool {
	for _, line := range logs {
		for _, program := range swapPrograms {
			if strings.Contains(line, program) {
				return true
			}
		}
		for _, marker := range swapInstructionMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}
