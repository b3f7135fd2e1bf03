package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/joshuapare/nskit/pkg/types"
)

// CMACSize is the length of an AES-CMAC tag.
const CMACSize = aes.BlockSize

// CMAC computes the AES-CMAC of msg under key (RFC 4493). The key must be
// 16, 24 or 32 bytes.
func (e *Engine) CMAC(key, msg []byte) ([CMACSize]byte, error) {
	var mac [CMACSize]byte
	block, err := aes.NewCipher(key)
	if err != nil {
		return mac, fmt.Errorf("crypto: cmac key of %d bytes: %w", len(key), types.ErrInvalidArgs)
	}
	s, err := e.scratch(4 * aes.BlockSize)
	if err != nil {
		return mac, err
	}
	defer e.release(s)

	cmac(block, msg, s, mac[:])
	return mac, nil
}

// CMACPRF128 is AES-CMAC-PRF-128 (RFC 4615): AES-CMAC with a variable
// length key, which is first compressed to 16 bytes unless it already is.
func (e *Engine) CMACPRF128(key, msg []byte) ([CMACSize]byte, error) {
	var out [CMACSize]byte
	s, err := e.scratch(5 * aes.BlockSize)
	if err != nil {
		return out, err
	}
	defer e.release(s)

	block, err := e.prfCipher(key, s)
	if err != nil {
		return out, err
	}
	cmac(block, msg, s[aes.BlockSize:], out[:])
	return out, nil
}

// prfCipher returns the AES cipher of the RFC 4615 derived key. s needs
// 5 blocks of scratch; the first holds the derived key.
func (e *Engine) prfCipher(key, s []byte) (cipher.Block, error) {
	if len(key) == aes.BlockSize {
		return aes.NewCipher(key)
	}
	zero, err := aes.NewCipher(s[:aes.BlockSize])
	if err != nil {
		return nil, err
	}
	k := s[:aes.BlockSize]
	cmac(zero, key, s[aes.BlockSize:], k)
	return aes.NewCipher(k)
}

// cmac writes the tag of msg to out. s needs 4 blocks of scratch.
func cmac(block cipher.Block, msg, s, out []byte) {
	const bs = aes.BlockSize
	k1, k2, x, last := s[0:bs], s[bs:2*bs], s[2*bs:3*bs], s[3*bs:4*bs]

	clear(x)
	block.Encrypt(x, x)
	double(k1, x)
	double(k2, k1)

	clear(x)
	for len(msg) > bs {
		xorInto(x, msg[:bs])
		block.Encrypt(x, x)
		msg = msg[bs:]
	}

	clear(last)
	copy(last, msg)
	if len(msg) == bs {
		xorInto(last, k1)
	} else {
		last[len(msg)] = 0x80
		xorInto(last, k2)
	}
	xorInto(x, last)
	block.Encrypt(out, x)
}

// double multiplies in by x in GF(2^128).
func double(out, in []byte) {
	carry := in[0] >> 7
	for i := 0; i < len(in)-1; i++ {
		out[i] = in[i]<<1 | in[i+1]>>7
	}
	out[len(in)-1] = in[len(in)-1] << 1
	if carry != 0 {
		out[len(in)-1] ^= 0x87
	}
}
