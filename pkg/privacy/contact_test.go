package privacy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := NewCipher("junyuespa-encryption-key-32-chars")
	for _, plain := range []string{"13812345678", "wechat:abc_def", "短", "a longer contact line with spaces"} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.Contains(t, enc, ":")
		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

// Two encryptions of the same plaintext must differ: the IV is random per
// call.
func TestEncryptNonDeterministic(t *testing.T) {
	c := NewCipher("k")
	a, err := c.Encrypt("13812345678")
	require.NoError(t, err)
	b, err := c.Encrypt("13812345678")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	da, _ := c.Decrypt(a)
	db, _ := c.Decrypt(b)
	assert.Equal(t, da, db)
}

func TestDecryptLegacyPlaintextPassthrough(t *testing.T) {
	c := NewCipher("k")
	for _, s := range []string{"13812345678", "no delimiter here", "bad:hex!pair"} {
		out, err := c.Decrypt(s)
		require.NoError(t, err)
		assert.Equal(t, s, out)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	a := NewCipher("key-one")
	b := NewCipher("key-two")
	enc, err := a.Encrypt("13812345678")
	require.NoError(t, err)
	out, err := b.Decrypt(enc)
	if err == nil {
		// CBC with a wrong key usually breaks the padding; when it happens
		// to survive, the plaintext must still be garbage.
		assert.NotEqual(t, "13812345678", out)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "138****5678", Mask("13812345678"))
	assert.Equal(t, "wec****def", Mask("wechat_abcdef"))
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "****", Mask("short6"))
	assert.Equal(t, "", Mask(""))
	// masking never needs the key or a decrypt
	assert.False(t, strings.Contains(Mask("13812345678"), "1234"))
}

// The prefix and suffix are counted in characters, not bytes, so multibyte
// contact info masks cleanly.
func TestMaskMultibyte(t *testing.T) {
	cases := map[string]string{
		"微信号weixin123": "微信号****123",
		"ab微信xyz":      "ab微****xyz",
		"微信号abc":       "****", // 6 characters
		"王小明":          "****",
	}
	for in, want := range cases {
		got := Mask(in)
		assert.Equal(t, want, got, "input %q", in)
		assert.True(t, utf8.ValidString(got), "input %q produced invalid UTF-8", in)
	}
}
