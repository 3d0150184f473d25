package domain

// Direction marks which way value flowed for the signers of a swap.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// ClassifiedSwap is one economic event recovered from a transaction's balance
// deltas. Immutable once constructed; the decoder hands it to the caller and
// keeps at most a bounded cache of recent results.
type ClassifiedSwap struct {
	Signature     string    // transaction signature
	Slot          int64     // Solana slot number
	BlockTime     int64     // Unix timestamp (seconds), 0 if unknown
	Direction     Direction // BUY | SELL
	NativeAmount  float64   // true SOL moved by the signers, fee-adjusted
	USDAmount     float64   // stablecoin (USDC/USDT) volume observed
	TokenAmount   float64   // absolute net token delta across all signers
	PrimarySigner string    // first signer account, used for attribution
	Labels        []string  // e.g. WHALE_SIGNAL
}

// LabelWhale marks swaps large enough to track as whale activity.
const LabelWhale = "WHALE_SIGNAL"

// ShortWallet renders an address in the compact display form used downstream.
func ShortWallet(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
