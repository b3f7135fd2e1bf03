package crypto

import (
	"crypto/aes"
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"github.com/joshuapare/nskit/internal/buf"
	"github.com/joshuapare/nskit/pkg/types"
)

const (
	// PSKcIterations is the PBKDF2 iteration count of PSKc derivation.
	PSKcIterations = 16384

	// MaxNetworkNameSize bounds the network name mixed into the PSKc salt.
	MaxNetworkNameSize = 16

	// MaxSaltSize is the longest salt PBKDF2 accepts.
	MaxSaltSize = len(pskcSaltPrefix) + 8 + MaxNetworkNameSize

	pskcSaltPrefix = "Thread"
)

// PBKDF2CMAC derives len(out) bytes from password and salt with PBKDF2 using
// AES-CMAC-PRF-128 as the pseudo-random function.
func (e *Engine) PBKDF2CMAC(password, salt []byte, iterations int, out []byte) error {
	if len(salt) > MaxSaltSize || iterations <= 0 || len(out) == 0 {
		return fmt.Errorf("crypto: pbkdf2 salt %d bytes, %d iterations: %w",
			len(salt), iterations, types.ErrInvalidArgs)
	}

	const bs = aes.BlockSize
	// derived key | cmac scratch (4 blocks) | U | T | salt || INT(i)
	s, err := e.scratch(7*bs + len(salt) + 4)
	if err != nil {
		return err
	}
	defer e.release(s)

	block, err := e.prfCipher(password, s)
	if err != nil {
		return err
	}
	work := s[bs : 5*bs]
	u, t := s[5*bs:6*bs], s[6*bs:7*bs]
	input := s[7*bs:]
	copy(input, salt)

	for counter := uint32(1); len(out) > 0; counter++ {
		buf.PutU32BE(input[len(salt):], counter)
		cmac(block, input, work, u)
		copy(t, u)
		for i := 1; i < iterations; i++ {
			cmac(block, u, work, u)
			xorInto(t, u)
		}
		out = out[copy(out, t):]
	}
	return nil
}

// PSKc derives the pre-shared key for the commissioner from the
// commissioning passphrase, the extended PAN ID and the network name.
func (e *Engine) PSKc(passphrase []byte, extPANID [8]byte, networkName string) ([16]byte, error) {
	var pskc [16]byte
	if len(networkName) > MaxNetworkNameSize {
		return pskc, fmt.Errorf("crypto: network name of %d bytes: %w", len(networkName), types.ErrInvalidArgs)
	}

	space, err := e.scratch(MaxSaltSize)
	if err != nil {
		return pskc, err
	}
	defer e.release(space)

	b := cryptobyte.NewFixedBuilder(space[:0])
	b.AddBytes([]byte(pskcSaltPrefix))
	b.AddBytes(extPANID[:])
	b.AddBytes([]byte(networkName))
	salt, err := b.Bytes()
	if err != nil {
		return pskc, fmt.Errorf("crypto: pskc salt: %w", err)
	}

	if err := e.PBKDF2CMAC(passphrase, salt, PSKcIterations, pskc[:]); err != nil {
		return pskc, err
	}
	return pskc, nil
}
