package gateway

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the YunGou request signature: drop the sign field, sort the
// remaining keys, join as k=v pairs with &, append &key=<secret>, MD5,
// uppercase hex.
func Sign(params map[string]string, key string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString("&key=")
	sb.WriteString(key)

	sum := md5.Sum([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifySign checks a supplied signature against the computed one.
// Comparison is case-insensitive and constant-time. Returns false for any
// malformed input; never panics.
func VerifySign(params map[string]string, suppliedSign, key string) bool {
	if suppliedSign == "" {
		return false
	}
	expected := Sign(params, key)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(suppliedSign)))
}
