package apsystems

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignatureMethod is the only signature algorithm the relay uses.
const SignatureMethod = "HmacSHA256"

// Request headers of the OpenAPI signing scheme.
const (
	HeaderAppID           = "X-CA-AppId"
	HeaderTimestamp       = "X-CA-Timestamp"
	HeaderNonce           = "X-CA-Nonce"
	HeaderSignatureMethod = "X-CA-Signature-Method"
	HeaderSignature       = "X-CA-Signature"
)

// Credentials identify an OpenAPI application.
type Credentials struct {
	AppID     string
	AppSecret string
}

// Signature holds the values sent in the signing headers.
type Signature struct {
	Timestamp string
	Nonce     string
	Value     string
}

// NewNonce returns 32 lowercase hex characters.
func NewNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SignaturePath is the path component that is signed: everything after the
// last "/" of endpoint. A query string stays part of it.
func SignaturePath(endpoint string) string {
	if i := strings.LastIndex(endpoint, "/"); i >= 0 {
		return endpoint[i+1:]
	}
	return endpoint
}

// Sign computes the base64 HMAC-SHA256 of
// "timestamp/nonce/appId/path/method/HmacSHA256" keyed by the app secret.
func Sign(creds Credentials, method, path, timestamp, nonce string) string {
	msg := strings.Join([]string{timestamp, nonce, creds.AppID, path, method, SignatureMethod}, "/")
	mac := hmac.New(sha256.New, []byte(creds.AppSecret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// NewSignature signs a GET of endpoint at now with a fresh nonce.
func NewSignature(creds Credentials, endpoint string, now time.Time) Signature {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	nonce := NewNonce()
	return Signature{
		Timestamp: ts,
		Nonce:     nonce,
		Value:     Sign(creds, "GET", SignaturePath(endpoint), ts, nonce),
	}
}
