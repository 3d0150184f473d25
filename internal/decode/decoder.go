// Package decode reconstructs classified swap events from the balance deltas
// of a parsed transaction. Router and aggregator programs sign on behalf of
// end users, so intent is recovered from the deltas of every signer rather
// than from the nominal fee payer.
package decode

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vortex/internal/domain"
	"solana-vortex/internal/observability"
	"solana-vortex/internal/relay"
	"solana-vortex/internal/solana"
)

// Reference stablecoin mints used for true volume detection.
const (
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

const (
	lamportsPerSOL = 1e9

	// A material stablecoin amount paired with a near-zero SOL delta means
	// the trade was economically denominated in the stablecoin.
	stablecoinFloorUSD = 10.0
	solNoiseThreshold  = 0.05

	// Whale labelling thresholds.
	whaleSOL = 25.0
	whaleUSD = 3750.0
)

// PriceSource supplies the SOL/USD reference price for stablecoin conversion.
type PriceSource interface {
	GetReferencePrice(ctx context.Context) float64
}

// Decoder classifies swaps for a target mint.
type Decoder struct {
	relay   *relay.Relay
	prices  PriceSource
	log     *logrus.Entry
	metrics *observability.Metrics
}

// NewDecoder creates a Decoder backed by the given relay and price source.
func NewDecoder(r *relay.Relay, prices PriceSource, logger *logrus.Logger, metrics *observability.Metrics) *Decoder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Decoder{
		relay:   r,
		prices:  prices,
		log:     logger.WithField("component", "decode"),
		metrics: metrics,
	}
}

// Decode fetches the parsed transaction and classifies it against the mint.
// Returns (nil, nil) when the transaction is not a swap involving the mint;
// an error only for infrastructure failure.
func (d *Decoder) Decode(ctx context.Context, signature, mint string) (*domain.ClassifiedSwap, error) {
	start := time.Now()

	tx, err := relay.Execute(ctx, d.relay, func(ctx context.Context, client *solana.HTTPClient) (*solana.ParsedTransaction, error) {
		return client.GetParsedTransaction(ctx, signature)
	})
	if err != nil {
		if d.metrics != nil {
			d.metrics.DecodeErrors.Inc()
		}
		return nil, fmt.Errorf("fetch transaction %s: %w", signature, err)
	}

	swap := d.Classify(ctx, tx, mint)

	if d.metrics != nil {
		d.metrics.DecodeLatency.Observe(time.Since(start).Seconds())
		if swap == nil {
			d.metrics.DecodeNulls.Inc()
		}
	}
	return swap, nil
}

// Classify derives a classified swap from an already-fetched transaction.
// Returns nil when no net token movement for the mint is attributable to the
// transaction's signers.
func (d *Decoder) Classify(ctx context.Context, tx *solana.ParsedTransaction, mint string) *domain.ClassifiedSwap {
	if tx == nil || tx.Err != nil {
		return nil
	}

	signers := tx.Signers()
	if len(signers) == 0 {
		return nil
	}
	signerSet := make(map[string]bool, len(signers))
	for _, s := range signers {
		signerSet[s] = true
	}

	// Net token flow across all accounts controlled by any signer. An event
	// with zero net movement (e.g. a transfer between a signer's own
	// accounts) is not a swap.
	tokenDelta := signerTokenDelta(tx, mint, signerSet)
	if tokenDelta == 0 {
		return nil
	}

	// Total SOL spent or received across all signers. One signer paid the
	// network fee, which shows up as an outgoing amount: subtract it from a
	// net spend, add it back to a net receipt.
	var solPre, solPost int64
	for i, k := range tx.AccountKeys {
		if !k.Signer {
			continue
		}
		if i < len(tx.PreBalances) {
			solPre += int64(tx.PreBalances[i])
		}
		if i < len(tx.PostBalances) {
			solPost += int64(tx.PostBalances[i])
		}
	}
	rawDelta := solPost - solPre
	fee := int64(tx.Fee)
	var adjusted int64
	if rawDelta < 0 {
		adjusted = -rawDelta - fee
	} else {
		adjusted = rawDelta + fee
	}
	solDelta := float64(adjusted) / lamportsPerSOL

	// Stablecoin recon for trades routed through USDC/USDT.
	usdAmount := math.Abs(signerTokenDelta(tx, USDCMint, signerSet)) +
		math.Abs(signerTokenDelta(tx, USDTMint, signerSet))

	computedSol := solDelta
	if usdAmount > stablecoinFloorUSD && solDelta < solNoiseThreshold {
		price := d.referencePrice(ctx)
		if price > 0 {
			computedSol = usdAmount / price
		}
	}

	direction := domain.DirectionSell
	if tokenDelta > 0 {
		direction = domain.DirectionBuy
	}

	var labels []string
	if computedSol > whaleSOL || usdAmount > whaleUSD {
		labels = append(labels, domain.LabelWhale)
	}

	return &domain.ClassifiedSwap{
		Signature:     tx.Signature,
		Slot:          tx.Slot,
		BlockTime:     tx.BlockTime,
		Direction:     direction,
		NativeAmount:  roundTo(computedSol, 6),
		USDAmount:     roundTo(usdAmount, 2),
		TokenAmount:   math.Abs(tokenDelta),
		PrimarySigner: signers[0],
		Labels:        labels,
	}
}

func (d *Decoder) referencePrice(ctx context.Context) float64 {
	if d.prices == nil {
		return 0
	}
	return d.prices.GetReferencePrice(ctx)
}

// signerTokenDelta sums post-minus-pre token balances for the mint over all
// accounts owned by any signer.
func signerTokenDelta(tx *solana.ParsedTransaction, mint string, signers map[string]bool) float64 {
	var delta float64
	for _, b := range tx.PostTokenBalances {
		if b.Mint == mint && b.Owner != "" && signers[b.Owner] {
			delta += b.UIAmount
		}
	}
	for _, b := range tx.PreTokenBalances {
		if b.Mint == mint && b.Owner != "" && signers[b.Owner] {
			delta -= b.UIAmount
		}
	}
	return delta
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
