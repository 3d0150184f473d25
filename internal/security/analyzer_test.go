package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-vortex/internal/domain"
	"solana-vortex/internal/relay"
)

const (
	testMint = "So11111111111111111111111111111111111111112"

	// onCurveWallet is the ed25519 base point, a valid wallet key.
	onCurveWallet = "6x5SYnLroiN7WYq8NQYU9KHcH4YjpBbwpUfVu3EB7ieH"
	// offCurvePDA decodes to 32 bytes that are not a curve point.
	offCurvePDA = "ANNxBwbwoniP4VLd1e59dBx2DxT6Uqybt98cGYb8Xnd"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// scriptedNode answers JSON-RPC calls from a script keyed by
// "<method>:<first param>". Unscripted getTransaction calls return null.
func scriptedNode(t *testing.T, script map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var first string
		if len(req.Params) > 0 {
			json.Unmarshal(req.Params[0], &first)
		}

		result, ok := script[req.Method+":"+first]
		if !ok {
			result = nil
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func testAnalyzer(url string) *Analyzer {
	r := relay.New([]string{url}, quietLogger(), relay.WithSeed(1))
	return NewAnalyzer(r, quietLogger(), nil)
}

func sigEntry(sig string, blockTime int64) map[string]interface{} {
	return map[string]interface{}{
		"signature": sig,
		"slot":      1,
		"blockTime": blockTime,
		"err":       nil,
	}
}

// buyerTx returns a parsed transaction whose fee payer is buyer.
func buyerTx(buyer string) map[string]interface{} {
	return map[string]interface{}{
		"slot":      100,
		"blockTime": 1000,
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"accountKeys": []map[string]interface{}{
					{"pubkey": buyer, "signer": true, "writable": true},
				},
			},
		},
	}
}

// fundingTx returns a parsed transaction containing one system transfer from
// source.
func fundingTx(source string) map[string]interface{} {
	return map[string]interface{}{
		"slot":      50,
		"blockTime": 900,
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"instructions": []map[string]interface{}{
					{
						"program": "system",
						"parsed": map[string]interface{}{
							"type": "transfer",
							"info": map[string]interface{}{
								"source":      source,
								"destination": "someWallet",
								"lamports":    1000000000,
							},
						},
					},
				},
			},
		},
	}
}

func TestAnalyzeHighDensity(t *testing.T) {
	// 62 of 100 signatures land on the same block time.
	sigs := make([]interface{}, 0, 100)
	for i := 0; i < 62; i++ {
		sigs = append(sigs, sigEntry(fmt.Sprintf("burst-%d", i), 5000))
	}
	for i := 0; i < 38; i++ {
		sigs = append(sigs, sigEntry(fmt.Sprintf("organic-%d", i), int64(6000+i)))
	}

	srv := scriptedNode(t, map[string]interface{}{
		"getSignaturesForAddress:" + testMint: sigs,
	})
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskHigh, risk.RiskLevel)
	assert.True(t, risk.IsBundled)
	assert.Equal(t, 62.0, risk.DensityPercent)
}

func TestAnalyzeMediumDensity(t *testing.T) {
	// 30 of 100 in one bucket: above 20, below 50.
	sigs := make([]interface{}, 0, 100)
	for i := 0; i < 30; i++ {
		sigs = append(sigs, sigEntry(fmt.Sprintf("burst-%d", i), 5000))
	}
	for i := 0; i < 70; i++ {
		sigs = append(sigs, sigEntry(fmt.Sprintf("organic-%d", i), int64(6000+i)))
	}

	srv := scriptedNode(t, map[string]interface{}{
		"getSignaturesForAddress:" + testMint: sigs,
	})
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskMedium, risk.RiskLevel)
	assert.True(t, risk.IsBundled)
}

func TestAnalyzeOrganicHistoryIsLow(t *testing.T) {
	sigs := make([]interface{}, 0, 100)
	for i := 0; i < 100; i++ {
		sigs = append(sigs, sigEntry(fmt.Sprintf("sig-%d", i), int64(5000+i)))
	}

	srv := scriptedNode(t, map[string]interface{}{
		"getSignaturesForAddress:" + testMint: sigs,
	})
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskLow, risk.RiskLevel)
	assert.False(t, risk.IsBundled)
}

func TestAnalyzeSharedFunderForcesHigh(t *testing.T) {
	// Ten organically spread signatures, but two of the five earliest buyers
	// were funded from the same wallet.
	sigs := make([]interface{}, 0, 10)
	for i := 9; i >= 0; i-- { // newest first
		sigs = append(sigs, sigEntry(fmt.Sprintf("mint-sig-%d", i), int64(5000+i)))
	}

	script := map[string]interface{}{
		"getSignaturesForAddress:" + testMint: sigs,
	}
	// Earliest five are mint-sig-0..4 (tail of the newest-first listing).
	for i := 0; i < 5; i++ {
		buyer := fmt.Sprintf("buyer-%d", i)
		script["getTransaction:"+fmt.Sprintf("mint-sig-%d", i)] = buyerTx(buyer)
		script["getSignaturesForAddress:"+buyer] = []interface{}{
			sigEntry(fmt.Sprintf("mint-sig-%d", i), int64(5000+i)),
			sigEntry(fmt.Sprintf("fund-%d", i), 900),
		}
		source := fmt.Sprintf("distinct-funder-%d", i)
		if i < 2 {
			source = onCurveWallet
		}
		script["getTransaction:"+fmt.Sprintf("fund-%d", i)] = fundingTx(source)
	}

	srv := scriptedNode(t, script)
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskHigh, risk.RiskLevel)
	assert.True(t, risk.IsBundled)
	assert.Equal(t, 85.0, risk.DensityPercent, "shared funding floors the score")
}

func TestAnalyzeOffCurveFunderIgnored(t *testing.T) {
	// Both early buyers trace back to the same program-derived address, which
	// is a pool vault, not an operator wallet.
	sigs := make([]interface{}, 0, 10)
	for i := 9; i >= 0; i-- {
		sigs = append(sigs, sigEntry(fmt.Sprintf("mint-sig-%d", i), int64(5000+i)))
	}

	script := map[string]interface{}{
		"getSignaturesForAddress:" + testMint: sigs,
	}
	for i := 0; i < 5; i++ {
		buyer := fmt.Sprintf("buyer-%d", i)
		script["getTransaction:"+fmt.Sprintf("mint-sig-%d", i)] = buyerTx(buyer)
		script["getSignaturesForAddress:"+buyer] = []interface{}{
			sigEntry(fmt.Sprintf("fund-%d", i), 900),
		}
		script["getTransaction:"+fmt.Sprintf("fund-%d", i)] = fundingTx(offCurvePDA)
	}

	srv := scriptedNode(t, script)
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskLow, risk.RiskLevel)
	assert.False(t, risk.IsBundled)
}

func TestAnalyzeEmptyHistoryIsLow(t *testing.T) {
	srv := scriptedNode(t, map[string]interface{}{
		"getSignaturesForAddress:" + testMint: []interface{}{},
	})
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskLow, risk.RiskLevel)
	assert.False(t, risk.IsBundled)
	assert.Equal(t, 0.0, risk.DensityPercent)
}

func TestAnalyzeFailsOpenOnInfraOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), testMint)

	assert.Equal(t, domain.RiskLow, risk.RiskLevel)
	assert.False(t, risk.IsBundled)
}

func TestAnalyzeRejectsInvalidMintAsLow(t *testing.T) {
	srv := scriptedNode(t, nil)
	defer srv.Close()

	risk := testAnalyzer(srv.URL).Analyze(context.Background(), "definitely#not$base58")

	assert.Equal(t, domain.RiskLow, risk.RiskLevel)
	assert.False(t, risk.IsBundled)
}

func TestHolderProfile(t *testing.T) {
	srv := scriptedNode(t, map[string]interface{}{
		"getTokenLargestAccounts:" + testMint: map[string]interface{}{
			"value": []map[string]interface{}{
				{"address": "top", "uiAmount": 200000000.0},
				{"address": "second", "uiAmount": 50000000.0},
				{"address": "third", "uiAmount": 10000000.0},
			},
		},
		"getTokenSupply:" + testMint: map[string]interface{}{
			"value": map[string]interface{}{
				"amount":   "1000000000000000",
				"decimals": 6,
				"uiAmount": 1000000000.0,
			},
		},
	})
	defer srv.Close()

	profile, err := testAnalyzer(srv.URL).HolderProfile(context.Background(), testMint)
	require.NoError(t, err)

	assert.Equal(t, 3, profile.EstimatedHolders)
	assert.InDelta(t, 0.2, profile.TopHolderShare, 1e-9)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(testMint))
	assert.NoError(t, ValidateAddress(onCurveWallet))
	assert.Error(t, ValidateAddress("tooShort"))
	assert.Error(t, ValidateAddress("zero0"), "0 is not in the base58 alphabet")
	assert.Error(t, ValidateAddress(""))
}

func TestIsWalletAddress(t *testing.T) {
	assert.True(t, isWalletAddress(onCurveWallet))
	assert.False(t, isWalletAddress(offCurvePDA), "off-curve keys are PDAs, not wallets")
	assert.False(t, isWalletAddress("not-base58!"))
}
