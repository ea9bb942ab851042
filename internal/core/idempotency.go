package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// RequestHash fingerprints a request for idempotency checks:
// SHA-256(canonical_json(body) + method + path). Object keys are sorted, so
// two bodies that differ only in key order or whitespace hash the same.
func RequestHash(body []byte, method, path string) string {
	h := sha256.New()
	h.Write(canonicalJSON(body))
	h.Write([]byte(method))
	h.Write([]byte(path))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalJSON(body []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return body
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return out
}
