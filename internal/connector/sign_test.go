package connector

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexusfeed/nexusfeed/internal/config"
)

func bybitTickerResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"retCode": 0,
		"retMsg":  "OK",
		"result": map[string]any{
			"list": []map[string]any{{
				"symbol":    "BTCUSDT",
				"lastPrice": "42000.5",
			}},
		},
	})
}

// TestBybitRequestSigning verifies the signed header set: the signature must
// be the hex HMAC-SHA256 of timestamp + key + recvWindow + query under the
// secret, computed over the query string exactly as sent.
func TestBybitRequestSigning(t *testing.T) {
	var gotHeader http.Header
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		bybitTickerResponse(w)
	}))
	t.Cleanup(server.Close)

	b, err := NewBybit(Options{
		BaseURL:     server.URL,
		Credentials: config.Credentials{APIKey: "key-1", APISecret: "secret-1"},
	})
	if err != nil {
		t.Fatalf("NewBybit failed: %v", err)
	}

	if _, err := b.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("FetchTicker failed: %v", err)
	}

	if got := gotHeader.Get("X-BAPI-API-KEY"); got != "key-1" {
		t.Errorf("X-BAPI-API-KEY = %q, want %q", got, "key-1")
	}
	if got := gotHeader.Get("X-BAPI-RECV-WINDOW"); got != "5000" {
		t.Errorf("X-BAPI-RECV-WINDOW = %q, want %q", got, "5000")
	}
	ts := gotHeader.Get("X-BAPI-TIMESTAMP")
	if ts == "" {
		t.Fatal("X-BAPI-TIMESTAMP is empty")
	}

	mac := hmac.New(sha256.New, []byte("secret-1"))
	mac.Write([]byte(ts + "key-1" + "5000" + gotQuery))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := gotHeader.Get("X-BAPI-SIGN"); got != want {
		t.Errorf("X-BAPI-SIGN = %q, want %q", got, want)
	}
}

// TestOKXRequestSigning verifies the signed header set: the signature must
// be the base64 HMAC-SHA256 of timestamp + method + requestPath under the
// secret, and the passphrase must travel in its own header.
func TestOKXRequestSigning(t *testing.T) {
	var gotHeader http.Header
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0",
			"data": []map[string]any{{
				"instId": "BTC-USDT",
				"last":   "42000.5",
			}},
		})
	}))
	t.Cleanup(server.Close)

	o, err := NewOKX(Options{
		BaseURL: server.URL,
		Credentials: config.Credentials{
			APIKey:     "key-2",
			APISecret:  "secret-2",
			Passphrase: "phrase-2",
		},
	})
	if err != nil {
		t.Fatalf("NewOKX failed: %v", err)
	}

	if _, err := o.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("FetchTicker failed: %v", err)
	}

	if got := gotHeader.Get("OK-ACCESS-KEY"); got != "key-2" {
		t.Errorf("OK-ACCESS-KEY = %q, want %q", got, "key-2")
	}
	if got := gotHeader.Get("OK-ACCESS-PASSPHRASE"); got != "phrase-2" {
		t.Errorf("OK-ACCESS-PASSPHRASE = %q, want %q", got, "phrase-2")
	}
	ts := gotHeader.Get("OK-ACCESS-TIMESTAMP")
	if ts == "" {
		t.Fatal("OK-ACCESS-TIMESTAMP is empty")
	}

	mac := hmac.New(sha256.New, []byte("secret-2"))
	mac.Write([]byte(ts + "GET" + gotPath + "?" + gotQuery))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := gotHeader.Get("OK-ACCESS-SIGN"); got != want {
		t.Errorf("OK-ACCESS-SIGN = %q, want %q", got, want)
	}
}

// A key without a secret cannot sign; the key still travels in the vendor
// header, but no signature headers are attached.
func TestBybitKeyOnlyIsNotSigned(t *testing.T) {
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		bybitTickerResponse(w)
	}))
	t.Cleanup(server.Close)

	b, err := NewBybit(Options{
		BaseURL:     server.URL,
		Credentials: config.Credentials{APIKey: "key-only"},
	})
	if err != nil {
		t.Fatalf("NewBybit failed: %v", err)
	}

	if _, err := b.FetchTicker(context.Background(), "BTC/USDT"); err != nil {
		t.Fatalf("FetchTicker failed: %v", err)
	}

	if got := gotHeader.Get("X-BAPI-API-KEY"); got != "key-only" {
		t.Errorf("X-BAPI-API-KEY = %q, want %q", got, "key-only")
	}
	if got := gotHeader.Get("X-BAPI-SIGN"); got != "" {
		t.Errorf("X-BAPI-SIGN = %q, want unset", got)
	}
}
