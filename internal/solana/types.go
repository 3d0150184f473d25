package solana

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// ParsedTransaction is the subset of a jsonParsed transaction this core reads:
// balances before/after, per-account token balances, signer flags, fee and the
// parsed top-level instructions. Anything else the node returns is dropped.
type ParsedTransaction struct {
	Signature         string
	Slot              int64
	BlockTime         int64 // Unix timestamp (seconds), 0 if unknown
	Fee               uint64
	Err               interface{}
	AccountKeys       []AccountKey
	PreBalances       []uint64 // lamports, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	Instructions      []ParsedInstruction
	LogMessages       []string
}

// AccountKey is one account referenced by a transaction message.
type AccountKey struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Signers returns the pubkeys of all accounts that signed the transaction.
func (t *ParsedTransaction) Signers() []string {
	var signers []string
	for _, k := range t.AccountKeys {
		if k.Signer {
			signers = append(signers, k.Pubkey)
		}
	}
	return signers
}

// TokenBalance is a pre/post token balance entry for one token account.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
}

// ParsedInstruction is a parsed top-level instruction. Only system transfers
// carry source/destination/lamports; other programs leave them empty.
type ParsedInstruction struct {
	Program     string
	Type        string
	Source      string
	Destination string
	Lamports    uint64
}

// TokenAccountBalance is one entry from getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address  string
	UIAmount float64
}

// TokenAmount is the value shape of getTokenSupply.
type TokenAmount struct {
	Amount   string
	Decimals int
	UIAmount float64
}
