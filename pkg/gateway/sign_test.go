package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignKnownVector(t *testing.T) {
	params := map[string]string{
		"out_trade_no": "SPA1001",
		"total_fee":    "15000",
		"mch_id":       "test_mch_id",
	}
	// md5("mch_id=test_mch_id&out_trade_no=SPA1001&total_fee=15000&key=test_key")
	assert.Equal(t, "3B2CB3DC5F6DA71538340E8FCFE9A752", Sign(params, "test_key"))
}

func TestSignExcludesSignField(t *testing.T) {
	params := map[string]string{"a": "1", "b": "2"}
	want := Sign(params, "k")
	params["sign"] = "whatever"
	assert.Equal(t, want, Sign(params, "k"))
}

func TestVerifySign(t *testing.T) {
	params := map[string]string{
		"mch_id":       "m1",
		"out_trade_no": "SPA42",
		"total_fee":    "15000",
		"attach":       `{"payment_id":7}`,
	}
	sig := Sign(params, "secret")

	assert.True(t, VerifySign(params, sig, "secret"))
	// case-insensitive on the supplied digest
	assert.True(t, VerifySign(params, lower(sig), "secret"))
	assert.False(t, VerifySign(params, sig, "other-secret"))
	assert.False(t, VerifySign(params, "", "secret"))
}

// Flipping any single character of the signature or of any signed field must
// fail verification.
func TestVerifySignTamperRejection(t *testing.T) {
	params := map[string]string{
		"mch_id":       "m1",
		"out_trade_no": "SPA42",
		"total_fee":    "15000",
	}
	sig := Sign(params, "secret")

	for i := range sig {
		tampered := sig[:i] + flip(sig[i]) + sig[i+1:]
		assert.False(t, VerifySign(params, tampered, "secret"), "sign flipped at %d", i)
	}
	for k, v := range params {
		for i := range v {
			mutated := map[string]string{}
			for kk, vv := range params {
				mutated[kk] = vv
			}
			mutated[k] = v[:i] + flip(v[i]) + v[i+1:]
			assert.False(t, VerifySign(mutated, sig, "secret"), "field %s flipped at %d", k, i)
		}
	}
}

func flip(b byte) string {
	if b == 'X' {
		return "Y"
	}
	return "X"
}

func lower(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b >= 'A' && b <= 'Z' {
			out[i] = b + ('a' - 'A')
		}
	}
	return string(out)
}
