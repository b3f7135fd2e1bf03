package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/joshuapare/nskit/pkg/types"
)

// HMACSize is the length of an HMAC-SHA256 tag.
const HMACSize = sha256.Size

// MaxHKDFSize is the longest output HKDF-SHA256 can produce.
const MaxHKDFSize = 255 * sha256.Size

// HMACSHA256 computes HMAC-SHA256 of msg under key (RFC 2104). The padded
// key blocks live in heap scratch.
func (e *Engine) HMACSHA256(key, msg []byte) ([HMACSize]byte, error) {
	var mac [HMACSize]byte
	const bs = sha256.BlockSize
	s, err := e.scratch(2*bs + HMACSize)
	if err != nil {
		return mac, err
	}
	defer e.release(s)

	ipad, opad, inner := s[:bs], s[bs:2*bs], s[2*bs:]
	if len(key) > bs {
		sum := sha256.Sum256(key)
		copy(ipad, sum[:])
	} else {
		copy(ipad, key)
	}
	copy(opad, ipad)
	for i := range bs {
		ipad[i] ^= 0x36
		opad[i] ^= 0x5c
	}

	h := sha256.New()
	h.Write(ipad)
	h.Write(msg)
	h.Sum(inner[:0])

	h.Reset()
	h.Write(opad)
	h.Write(inner)
	h.Sum(mac[:0])
	return mac, nil
}

// HKDFSHA256 expands secret into length bytes with HKDF-SHA256 (RFC 5869).
// The output block is assembled in heap scratch and copied out.
func (e *Engine) HKDFSHA256(secret, salt, info []byte, length int) ([]byte, error) {
	if length <= 0 || length > MaxHKDFSize {
		return nil, fmt.Errorf("crypto: hkdf length %d: %w", length, types.ErrInvalidArgs)
	}
	s, err := e.scratch(length)
	if err != nil {
		return nil, err
	}
	defer e.release(s)

	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), s); err != nil {
		return nil, fmt.Errorf("crypto: hkdf: %w", err)
	}
	return append([]byte(nil), s...), nil
}
