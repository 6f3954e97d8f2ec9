package privacy

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Cipher encrypts contact info at rest with AES-256-CBC. Each call draws a
// fresh IV, so two encryptions of the same plaintext differ; the IV is stored
// with the ciphertext as "ivhex:cipherhex". Strings that do not match that
// shape are treated as legacy plaintext and passed through unchanged.
type Cipher struct {
	key []byte
}

// NewCipher derives a 32-byte AES key from the configured key string.
func NewCipher(key string) *Cipher {
	sum := sha256.Sum256([]byte(key))
	return &Cipher{key: sum[:]}
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

func (c *Cipher) Decrypt(stored string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(stored, ":")
	if !ok {
		return stored, nil // legacy plaintext
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return stored, nil
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return stored, nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("privacy: decrypt: %w", err)
	}
	return string(unpadded), nil
}

var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// Mask produces a display-safe form of contact info without touching the key.
// Phone numbers keep the first 3 and last 4 digits; longer strings keep the
// first and last 3 characters, counted as characters so multibyte contact
// info (wechat ids, names) stays valid UTF-8; anything too short collapses
// to "****".
func Mask(contact string) string {
	if contact == "" {
		return ""
	}
	if phonePattern.MatchString(contact) {
		return contact[:3] + "****" + contact[7:]
	}
	r := []rune(contact)
	if len(r) > 6 {
		return string(r[:3]) + "****" + string(r[len(r)-3:])
	}
	return "****"
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
