package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rpcServer(t *testing.T, wantMethod string, result interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if wantMethod != "" && req.Method != wantMethod {
			t.Errorf("expected method %s, got %s", wantMethod, req.Method)
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_GetParsedTransaction(t *testing.T) {
	server := rpcServer(t, "getTransaction", map[string]interface{}{
		"slot":      int64(250000000),
		"blockTime": int64(1756000000),
		"meta": map[string]interface{}{
			"err":          nil,
			"fee":          5000,
			"preBalances":  []uint64{10000000000, 0},
			"postBalances": []uint64{9994990000, 0},
			"preTokenBalances": []map[string]interface{}{
				{
					"accountIndex": 2,
					"mint":         "mintX",
					"owner":        "signer1",
					"uiTokenAmount": map[string]interface{}{
						"amount":   "0",
						"decimals": 6,
						"uiAmount": nil,
					},
				},
			},
			"postTokenBalances": []map[string]interface{}{
				{
					"accountIndex": 2,
					"mint":         "mintX",
					"owner":        "signer1",
					"uiTokenAmount": map[string]interface{}{
						"amount":   "1000000000",
						"decimals": 6,
						"uiAmount": 1000.0,
					},
				},
			},
			"logMessages": []string{"Program log: Instruction: Swap"},
		},
		"transaction": map[string]interface{}{
			"message": map[string]interface{}{
				"accountKeys": []map[string]interface{}{
					{"pubkey": "signer1", "signer": true, "writable": true},
					{"pubkey": "pool", "signer": false, "writable": true},
				},
				"instructions": []map[string]interface{}{
					{
						"program": "system",
						"parsed": map[string]interface{}{
							"type": "transfer",
							"info": map[string]interface{}{
								"source":      "funder",
								"destination": "signer1",
								"lamports":    1000000000,
							},
						},
					},
					{
						"program": "spl-token",
						"parsed":  "opaque",
					},
				},
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetParsedTransaction(context.Background(), "testsig")
	if err != nil {
		t.Fatalf("GetParsedTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 250000000 {
		t.Errorf("expected slot 250000000, got %d", tx.Slot)
	}
	if tx.BlockTime != 1756000000 {
		t.Errorf("expected blockTime 1756000000, got %d", tx.BlockTime)
	}
	if tx.Fee != 5000 {
		t.Errorf("expected fee 5000, got %d", tx.Fee)
	}

	signers := tx.Signers()
	if len(signers) != 1 || signers[0] != "signer1" {
		t.Errorf("expected signers [signer1], got %v", signers)
	}

	if len(tx.PreTokenBalances) != 1 || tx.PreTokenBalances[0].UIAmount != 0 {
		t.Errorf("expected null uiAmount to read as 0, got %+v", tx.PreTokenBalances)
	}
	if len(tx.PostTokenBalances) != 1 || tx.PostTokenBalances[0].UIAmount != 1000 {
		t.Errorf("expected post balance 1000, got %+v", tx.PostTokenBalances)
	}

	if len(tx.Instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(tx.Instructions))
	}
	ix := tx.Instructions[0]
	if ix.Program != "system" || ix.Type != "transfer" || ix.Source != "funder" || ix.Lamports != 1000000000 {
		t.Errorf("unexpected parsed instruction: %+v", ix)
	}
	if tx.Instructions[1].Type != "opaque" {
		t.Errorf("bare-string parsed field should land in Type, got %+v", tx.Instructions[1])
	}
}

func TestHTTPClient_GetParsedTransaction_NotFound(t *testing.T) {
	server := rpcServer(t, "getTransaction", nil)
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetParsedTransaction(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetParsedTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for missing transaction, got %+v", tx)
	}
}

func TestHTTPClient_GetSignaturesForAddress(t *testing.T) {
	blockTime := int64(1756000000)
	server := rpcServer(t, "getSignaturesForAddress", []map[string]interface{}{
		{"signature": "sigNew", "slot": 102, "blockTime": blockTime, "err": nil},
		{"signature": "sigOld", "slot": 101, "blockTime": nil, "err": map[string]interface{}{"InstructionError": nil}},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	sigs, err := client.GetSignaturesForAddress(context.Background(), "addr", &SignaturesOpts{Limit: 10})
	if err != nil {
		t.Fatalf("GetSignaturesForAddress: %v", err)
	}

	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	if sigs[0].Signature != "sigNew" || sigs[0].Slot != 102 {
		t.Errorf("unexpected first signature: %+v", sigs[0])
	}
	if sigs[0].BlockTime == nil || *sigs[0].BlockTime != blockTime {
		t.Errorf("expected blockTime %d, got %v", blockTime, sigs[0].BlockTime)
	}
	if sigs[1].BlockTime != nil {
		t.Errorf("expected nil blockTime, got %v", sigs[1].BlockTime)
	}
	if sigs[1].Err == nil {
		t.Error("expected error marker on second signature")
	}
}

func TestHTTPClient_GetTokenLargestAccounts(t *testing.T) {
	server := rpcServer(t, "getTokenLargestAccounts", map[string]interface{}{
		"value": []map[string]interface{}{
			{"address": "acct1", "uiAmount": 500000.0},
			{"address": "acct2", "uiAmount": nil},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	accounts, err := client.GetTokenLargestAccounts(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("GetTokenLargestAccounts: %v", err)
	}

	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].UIAmount != 500000 {
		t.Errorf("expected 500000, got %f", accounts[0].UIAmount)
	}
	if accounts[1].UIAmount != 0 {
		t.Errorf("expected null uiAmount to read as 0, got %f", accounts[1].UIAmount)
	}
}

func TestHTTPClient_GetTokenSupply(t *testing.T) {
	server := rpcServer(t, "getTokenSupply", map[string]interface{}{
		"value": map[string]interface{}{
			"amount":   "1000000000000000",
			"decimals": 6,
			"uiAmount": 1000000000.0,
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	supply, err := client.GetTokenSupply(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("GetTokenSupply: %v", err)
	}
	if supply == nil {
		t.Fatal("expected supply, got nil")
	}
	if supply.UIAmount != 1000000000 {
		t.Errorf("expected uiAmount 1e9, got %f", supply.UIAmount)
	}
	if supply.Decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", supply.Decimals)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3))
	_, err := client.GetSlot(context.Background())

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32602 {
		t.Errorf("expected code -32602, got %d", rpcErr.Code)
	}
	if calls != 1 {
		t.Errorf("RPC errors must not be retried, got %d calls", calls)
	}
}

func TestHTTPClient_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.GetSlot(context.Background())

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", statusErr.Code)
	}
}
