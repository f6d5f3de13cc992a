package connector

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/config"
)

// signFunc produces authentication headers for one request. rawQuery is the
// encoded query string exactly as it appears in the request URL.
type signFunc func(method, path, rawQuery string) map[string]string

const bybitRecvWindow = "5000"

// bybitSigner signs Bybit v5 requests. The signature is the hex HMAC-SHA256
// of timestamp + key + recvWindow + query under the API secret.
func bybitSigner(creds config.Credentials) signFunc {
	return func(method, path, rawQuery string) map[string]string {
		ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

		mac := hmac.New(sha256.New, []byte(creds.APISecret))
		mac.Write([]byte(ts + creds.APIKey + bybitRecvWindow + rawQuery))

		return map[string]string{
			"X-BAPI-API-KEY":     creds.APIKey,
			"X-BAPI-TIMESTAMP":   ts,
			"X-BAPI-RECV-WINDOW": bybitRecvWindow,
			"X-BAPI-SIGN":        hex.EncodeToString(mac.Sum(nil)),
		}
	}
}

// okxSigner signs OKX v5 requests. The signature is the base64 HMAC-SHA256
// of timestamp + method + requestPath (query included) under the API secret.
// OKX additionally requires the account passphrase alongside the key.
func okxSigner(creds config.Credentials) signFunc {
	return func(method, path, rawQuery string) map[string]string {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

		requestPath := path
		if rawQuery != "" {
			requestPath += "?" + rawQuery
		}
		mac := hmac.New(sha256.New, []byte(creds.APISecret))
		mac.Write([]byte(ts + method + requestPath))

		headers := map[string]string{
			"OK-ACCESS-KEY":       creds.APIKey,
			"OK-ACCESS-SIGN":      base64.StdEncoding.EncodeToString(mac.Sum(nil)),
			"OK-ACCESS-TIMESTAMP": ts,
		}
		if creds.Passphrase != "" {
			headers["OK-ACCESS-PASSPHRASE"] = creds.Passphrase
		}
		return headers
	}
}
