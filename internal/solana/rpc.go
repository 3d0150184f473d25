package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface this core consumes.
type RPCClient interface {
	// GetParsedTransaction retrieves a fully parsed transaction by signature.
	// Returns nil if the transaction is not found.
	GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTokenLargestAccounts retrieves the largest token accounts for a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenAccountBalance, error)

	// GetTokenSupply retrieves the total supply for a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
