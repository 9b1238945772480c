package transform

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"otus.dev/agent/internal/wire/value"
)

const (
	xteaRounds = 32
	xteaDelta  = 0x9E3779B9
	xteaBlock  = 8
)

// xteaStage decrypts fixed-size 8-byte blocks with XTEA, using a 128-bit key
// either supplied directly in schema options (as a 32-character hex string,
// per §4.4/§8 scenario 6) or looked up from the shared transform Context
// under contextKey (written there as raw bytes by an earlier raw_rsa stage).
// A "key" option that is missing, not hex, or shorter than 16 bytes fails
// construction. An all-zero "key" option, or a context key that is absent or
// shorter than 16 bytes, leaves the bytes unchanged (§4.4).
type xteaStage struct {
	key        [4]uint32
	haveKey    bool
	contextKey string
}

func newXTEAStage(options map[string]any) (Stage, error) {
	s := &xteaStage{}
	if ck, ok := options["key_from_context"].(string); ok && ck != "" {
		s.contextKey = ck
		return s, nil
	}
	raw, ok := options["key"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("xtea: missing \"key\" or \"key_from_context\" option")
	}
	keyBytes, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("xtea: \"key\" must be hex-encoded: %w", err)
	}
	key, err := decodeXTEAKey(keyBytes)
	if err != nil {
		return nil, err
	}
	s.key = key
	s.haveKey = key != [4]uint32{}
	return s, nil
}

func (s *xteaStage) Name() string { return "xtea" }

func (s *xteaStage) Apply(data []byte, ctx *Context) []byte {
	key := s.key
	haveKey := s.haveKey
	if s.contextKey != "" {
		v, ok := ctx.Get(s.contextKey)
		if !ok || v.Kind != value.KindBytes {
			return data
		}
		k, err := decodeXTEAKey(v.Bytes)
		if err != nil {
			return data
		}
		key = k
		haveKey = true
	}
	if !haveKey {
		return data
	}

	n := len(data) - (len(data) % xteaBlock)
	out := make([]byte, len(data))
	copy(out, data)
	for off := 0; off < n; off += xteaBlock {
		decryptBlock(out[off:off+xteaBlock], key)
	}
	return out
}

func decodeXTEAKey(raw []byte) ([4]uint32, error) {
	var key [4]uint32
	if len(raw) < 16 {
		return key, fmt.Errorf("xtea: key must be 16 bytes, got %d", len(raw))
	}
	for i := 0; i < 4; i++ {
		key[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return key, nil
}

// decryptBlock runs the standard 32-round XTEA decryption in place over an
// 8-byte block, reading/writing both words little-endian.
func decryptBlock(block []byte, key [4]uint32) {
	v0 := binary.LittleEndian.Uint32(block[0:4])
	v1 := binary.LittleEndian.Uint32(block[4:8])

	var sum uint32
	for i := 0; i < xteaRounds; i++ {
		sum += xteaDelta
	}
	for i := 0; i < xteaRounds; i++ {
		v1 -= ((v0 << 4) ^ (v0 >> 5)) + v0 ^ (sum + key[(sum>>11)&3])
		sum -= xteaDelta
		v0 -= ((v1 << 4) ^ (v1 >> 5)) + v1 ^ (sum + key[sum&3])
	}

	binary.LittleEndian.PutUint32(block[0:4], v0)
	binary.LittleEndian.PutUint32(block[4:8], v1)
}

// encryptBlock is the XTEA involution's inverse, kept alongside decryptBlock
// for the round-trip tests; the live pipeline only ever decrypts (§4.4: the
// replayer re-sends the original plaintext, it never re-encrypts).
func encryptBlock(block []byte, key [4]uint32) {
	v0 := binary.LittleEndian.Uint32(block[0:4])
	v1 := binary.LittleEndian.Uint32(block[4:8])

	var sum uint32
	for i := 0; i < xteaRounds; i++ {
		v0 += ((v1 << 4) ^ (v1 >> 5)) + v1 ^ (sum + key[sum&3])
		sum += xteaDelta
		v1 += ((v0 << 4) ^ (v0 >> 5)) + v0 ^ (sum + key[(sum>>11)&3])
	}

	binary.LittleEndian.PutUint32(block[0:4], v0)
	binary.LittleEndian.PutUint32(block[4:8], v1)
}
