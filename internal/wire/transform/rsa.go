package transform

import (
	"fmt"
	"math/big"

	"otus.dev/agent/internal/wire/value"
)

const defaultRSABlockSize = 128

// rawRSAStage performs textbook (unpadded) RSA decryption on a single
// fixed-size block at a declared offset within the input: c^d mod n,
// msb-first. This is the "raw RSA" transform from the protocol's
// handshake, not an RFC-8017 padded scheme — a Tibia-style login packet
// carries a few header bytes before the block_size-byte RSA block, so the
// stage must leave everything outside input[offset:offset+block_size]
// untouched. After decrypting, the stage optionally copies key_length bytes
// (default 16) starting at key_offset (default 0) of the decrypted block as
// the session key and publishes them to the Context under the name given by
// xtea_key_output, for a later xtea stage to consume (§4.4).
type rawRSAStage struct {
	n         *big.Int
	d         *big.Int
	offset    int
	blockSize int
	keyOutput string
	keyOffset int
	keyLength int
}

func newRawRSAStage(options map[string]any) (Stage, error) {
	modulusHex, _ := options["modulus"].(string)
	exponentHex, _ := options["exponent"].(string)
	if modulusHex == "" || exponentHex == "" {
		return nil, fmt.Errorf("raw_rsa: \"modulus\" and \"exponent\" options are required")
	}

	n, ok := new(big.Int).SetString(modulusHex, 0)
	if !ok {
		return nil, fmt.Errorf("raw_rsa: invalid modulus %q", modulusHex)
	}
	d, ok := new(big.Int).SetString(exponentHex, 0)
	if !ok {
		return nil, fmt.Errorf("raw_rsa: invalid exponent %q", exponentHex)
	}

	blockSize := defaultRSABlockSize
	if bs, ok := options["block_size"].(float64); ok && bs > 0 {
		blockSize = int(bs)
	}
	offset := 0
	if o, ok := options["offset"].(float64); ok && o >= 0 {
		offset = int(o)
	}

	s := &rawRSAStage{n: n, d: d, offset: offset, blockSize: blockSize}
	if ko, ok := options["xtea_key_output"].(string); ok && ko != "" {
		s.keyOutput = ko
		s.keyLength = 16
		if kl, ok := options["key_length"].(float64); ok && kl > 0 {
			s.keyLength = int(kl)
		}
		if koff, ok := options["key_offset"].(float64); ok && koff >= 0 {
			s.keyOffset = int(koff)
		}
	}
	return s, nil
}

func (s *rawRSAStage) Name() string { return "raw_rsa" }

func (s *rawRSAStage) Apply(data []byte, ctx *Context) []byte {
	if len(data) < s.offset+s.blockSize {
		return data
	}
	out := make([]byte, len(data))
	copy(out, data)

	block := out[s.offset : s.offset+s.blockSize]
	c := new(big.Int).SetBytes(block)
	m := new(big.Int).Exp(c, s.d, s.n)
	decoded := m.Bytes()
	// left-pad back to block_size; modexp drops leading zero bytes.
	for i := range block {
		block[i] = 0
	}
	copy(block[s.blockSize-len(decoded):], decoded)

	if s.keyOutput != "" {
		end := s.keyOffset + s.keyLength
		if end <= len(block) {
			key := make([]byte, s.keyLength)
			copy(key, block[s.keyOffset:end])
			ctx.Set(s.keyOutput, value.Bytes(key))
		}
	}

	return out
}
