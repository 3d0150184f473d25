package feed

import (
	"context"

	"solana-vortex/internal/relay"
	"solana-vortex/internal/solana"
)

// RelayLister adapts the endpoint relay to the SignatureLister interface so
// poll fallback inherits rotation and degradation handling.
type RelayLister struct {
	Relay *relay.Relay
}

func (l *RelayLister) RecentSignatures(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	return relay.Execute(ctx, l.Relay, func(ctx context.Context, client *solana.HTTPClient) ([]solana.SignatureInfo, error) {
		return client.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: limit})
	})
}
