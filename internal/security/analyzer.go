// Package security scores coordinated-holder ("bundle") risk for a token by
// inspecting its early transaction history: temporal clustering of signatures
// plus a funding-fingerprint trace of the earliest buyers.
package security

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/domain"
	"solana-vortex/internal/observability"
	"solana-vortex/internal/relay"
	"solana-vortex/internal/solana"
)

const (
	// maxSignatures bounds how much history one analysis inspects.
	maxSignatures = 100
	// earlyBuyerCount is how many of the earliest buyers get a funding trace.
	earlyBuyerCount = 5
	// fundingLookback is how many recent signatures to pull per buyer when
	// hunting for the funding transfer.
	fundingLookback = 5

	// clusterFloor is the minimum density score once a shared funding source
	// is found: a single operator controlling multiple early wallets.
	clusterFloor = 85.0

	mediumThreshold = 20.0
	highThreshold   = 50.0
)

// Analyzer scores bundle risk on demand through the relay.
type Analyzer struct {
	relay   *relay.Relay
	log     *logrus.Entry
	metrics *observability.Metrics
}

// NewAnalyzer creates a bundle risk analyzer.
func NewAnalyzer(r *relay.Relay, logger *logrus.Logger, metrics *observability.Metrics) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{
		relay:   r,
		log:     logger.WithField("component", "security"),
		metrics: metrics,
	}
}

// Analyze never fails: any internal error degrades to LOW/0. This silently
// under-reports risk during infrastructure outages; callers that care must
// watch the logs.
func (a *Analyzer) Analyze(ctx context.Context, mint string) domain.BundleRisk {
	risk, err := a.analyze(ctx, mint)
	if err != nil {
		a.log.WithField("mint", mint).WithError(err).Warn("bundle analysis failed, reporting low")
		risk = domain.BundleRisk{IsBundled: false, DensityPercent: 0, RiskLevel: domain.RiskLow}
	}
	if a.metrics != nil {
		a.metrics.RiskAnalyses.WithLabelValues(risk.RiskLevel.String()).Inc()
	}
	return risk
}

func (a *Analyzer) analyze(ctx context.Context, mint string) (domain.BundleRisk, error) {
	if err := ValidateAddress(mint); err != nil {
		return domain.BundleRisk{}, fmt.Errorf("invalid mint: %w", err)
	}

	sigs, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) ([]solana.SignatureInfo, error) {
		return client.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{Limit: maxSignatures})
	})
	if err != nil {
		return domain.BundleRisk{}, fmt.Errorf("fetch signatures: %w", err)
	}

	if len(sigs) == 0 {
		return domain.BundleRisk{IsBundled: false, DensityPercent: 0, RiskLevel: domain.RiskLow}, nil
	}

	score := temporalDensity(sigs)

	// A shared funding source among the earliest buyers is near-certain
	// evidence of a bundler launch, regardless of the temporal score.
	clusters := a.fundingClusters(ctx, sigs)
	if len(clusters) > 0 {
		score = math.Max(score, clusterFloor)
	}

	level := domain.RiskLow
	switch {
	case score > highThreshold:
		level = domain.RiskHigh
	case score > mediumThreshold:
		level = domain.RiskMedium
	}

	return domain.BundleRisk{
		IsBundled:      score > mediumThreshold,
		DensityPercent: math.Round(score*100) / 100,
		RiskLevel:      level,
	}, nil
}

// temporalDensity is the share of signatures landing in the single busiest
// block-time bucket, as a percentage. Automated sniping lands many
// transactions in the same moment.
func temporalDensity(sigs []solana.SignatureInfo) float64 {
	buckets := make(map[int64]int)
	for _, s := range sigs {
		if s.BlockTime != nil {
			buckets[*s.BlockTime]++
		}
	}

	maxBucket := 0
	for _, n := range buckets {
		if n > maxBucket {
			maxBucket = n
		}
	}

	return float64(maxBucket) / float64(len(sigs)) * 100
}

// fundingClusters traces the earliest buyers back to their most likely SOL
// funding source and returns any source that funded two or more of them.
// Individual trace failures are skipped; the cluster check is best-effort.
func (a *Analyzer) fundingClusters(ctx context.Context, sigs []solana.SignatureInfo) []string {
	if len(sigs) < 2 {
		return nil
	}

	// Signature listings are newest-first; the tail holds the launch.
	start := len(sigs) - earlyBuyerCount
	if start < 0 {
		start = 0
	}
	earliest := make([]solana.SignatureInfo, 0, earlyBuyerCount)
	for i := len(sigs) - 1; i >= start; i-- {
		earliest = append(earliest, sigs[i])
	}

	counts := make(map[string]int)
	for _, sig := range earliest {
		source, err := a.traceFundingSource(ctx, sig.Signature)
		if err != nil {
			a.log.WithField("signature", sig.Signature).WithError(err).Debug("funding trace failed")
			continue
		}
		if source != "" {
			counts[source]++
		}
	}

	var clusters []string
	for source, n := range counts {
		if n > 1 {
			clusters = append(clusters, source)
		}
	}
	return clusters
}

// traceFundingSource finds the buyer behind one early transaction and returns
// the source of their most likely funding transfer.
func (a *Analyzer) traceFundingSource(ctx context.Context, signature string) (string, error) {
	tx, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) (*solana.ParsedTransaction, error) {
		return client.GetParsedTransaction(ctx, signature)
	})
	if err != nil {
		return "", err
	}
	if tx == nil || len(tx.AccountKeys) == 0 {
		return "", nil
	}
	buyer := tx.AccountKeys[0].Pubkey

	recent, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) ([]solana.SignatureInfo, error) {
		return client.GetSignaturesForAddress(ctx, buyer, &solana.SignaturesOpts{Limit: fundingLookback})
	})
	if err != nil {
		return "", err
	}
	if len(recent) == 0 {
		return "", nil
	}

	// The oldest of the buyer's recent signatures is more likely the funding
	// transfer than the newest, which is usually the swap itself.
	fundingSig := recent[len(recent)-1].Signature
	fundingTx, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) (*solana.ParsedTransaction, error) {
		return client.GetParsedTransaction(ctx, fundingSig)
	})
	if err != nil {
		return "", err
	}
	if fundingTx == nil {
		return "", nil
	}

	for _, ins := range fundingTx.Instructions {
		if ins.Program == "system" && ins.Type == "transfer" && ins.Source != "" {
			if isWalletAddress(ins.Source) {
				return ins.Source, nil
			}
		}
	}
	return "", nil
}

// HolderProfile estimates holder distribution from the largest on-chain
// accounts and the total supply.
func (a *Analyzer) HolderProfile(ctx context.Context, mint string) (domain.HolderProfile, error) {
	if err := ValidateAddress(mint); err != nil {
		return domain.HolderProfile{}, fmt.Errorf("invalid mint: %w", err)
	}

	largest, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) ([]solana.TokenAccountBalance, error) {
		return client.GetTokenLargestAccounts(ctx, mint)
	})
	if err != nil {
		return domain.HolderProfile{}, fmt.Errorf("fetch largest accounts: %w", err)
	}

	profile := domain.HolderProfile{EstimatedHolders: len(largest)}
	if len(largest) == 0 {
		return profile, nil
	}

	supply, err := relay.Execute(ctx, a.relay, func(ctx context.Context, client *solana.HTTPClient) (*solana.TokenAmount, error) {
		return client.GetTokenSupply(ctx, mint)
	})
	if err != nil {
		return domain.HolderProfile{}, fmt.Errorf("fetch supply: %w", err)
	}

	if supply != nil && supply.UIAmount > 0 {
		profile.TopHolderShare = largest[0].UIAmount / supply.UIAmount
	}
	return profile, nil
}
