package domain

// RiskLevel buckets a bundle-density score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// String returns the string representation of RiskLevel.
func (r RiskLevel) String() string {
	return string(r)
}

// BundleRisk describes whether early holders of an asset look coordinated.
// Produced fresh on every analysis call; never persisted by this core.
type BundleRisk struct {
	IsBundled      bool
	DensityPercent float64 // 0..100
	RiskLevel      RiskLevel
}

// HolderProfile is a coarse view of token holder distribution derived from
// the largest on-chain accounts and total supply.
type HolderProfile struct {
	EstimatedHolders int
	TopHolderShare   float64 // fraction of total supply held by the largest account, 0..1
}
