package transform

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otus.dev/agent/internal/wire/schema"
	"otus.dev/agent/internal/wire/value"
)

func TestXTEADecryptEncryptIsInvolution(t *testing.T) {
	key := [4]uint32{0x01020304, 0x05060708, 0x090a0b0c, 0x0d0e0f10}
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	block := append([]byte(nil), original...)

	encryptBlock(block, key)
	assert.NotEqual(t, original, block)

	decryptBlock(block, key)
	assert.Equal(t, original, block)
}

func TestXTEAStageAppliesWithDirectKey(t *testing.T) {
	// §8 scenario 6 uses the 32-hex-char form of a 16-byte key.
	const hexKey = "00112233445566778899AABBCCDDEEFF"
	stage, err := newXTEAStage(map[string]any{"key": hexKey})
	require.NoError(t, err)

	plain := make([]byte, 16)
	for i := range plain {
		plain[i] = byte(i)
	}
	cipher := make([]byte, len(plain))
	copy(cipher, plain)
	keyBytes, err := hex.DecodeString(hexKey)
	require.NoError(t, err)
	key, err := decodeXTEAKey(keyBytes)
	require.NoError(t, err)
	for off := 0; off < len(cipher); off += xteaBlock {
		encryptBlock(cipher[off:off+xteaBlock], key)
	}

	out := stage.Apply(cipher, NewContext())
	assert.Equal(t, plain, out)
}

func TestXTEAStageRejectsNonHexKey(t *testing.T) {
	_, err := newXTEAStage(map[string]any{"key": "not-hex-at-all!!"})
	assert.Error(t, err, "a key option that isn't hex must fail to build, not be silently truncated to ASCII bytes")
}

func TestXTEAStageMissingKeyIsNoop(t *testing.T) {
	stage, err := newXTEAStage(map[string]any{"key_from_context": "session_key"})
	require.NoError(t, err)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out := stage.Apply(data, NewContext())
	assert.Equal(t, data, out, "missing context key must leave bytes unchanged")
}

func TestXTEAStageReadsKeyFromContext(t *testing.T) {
	stage, err := newXTEAStage(map[string]any{"key_from_context": "session_key"})
	require.NoError(t, err)

	ctx := NewContext()
	ctx.Set("session_key", value.Bytes([]byte("abcdefghijklmnop")))

	key, err := decodeXTEAKey([]byte("abcdefghijklmnop"))
	require.NoError(t, err)
	cipher := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	encryptBlock(cipher, key)

	out := stage.Apply(append([]byte(nil), cipher...), ctx)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
}

func TestRawRSAStageIdentityOnShortInput(t *testing.T) {
	stage, err := newRawRSAStage(map[string]any{
		"modulus":  "0x10001",
		"exponent": "0x3",
		"offset":   float64(4),
	})
	require.NoError(t, err)

	// shorter than offset+block_size (4 + default 128), must pass through.
	short := []byte{1, 2, 3}
	out := stage.Apply(short, NewContext())
	assert.Equal(t, short, out, "input shorter than offset+block_size must pass through unchanged")
}

func TestRawRSAStageRoundTripsAndPublishesKey(t *testing.T) {
	// small toy keypair: n = p*q, e*d = 1 mod phi(n)
	p := big.NewInt(61)
	q := big.NewInt(53)
	n := new(big.Int).Mul(p, q) // 3233
	phi := new(big.Int).Mul(big.NewInt(60), big.NewInt(52))
	e := big.NewInt(17)
	d := new(big.Int).ModInverse(e, phi)
	require.NotNil(t, d)

	const blockSize = 4
	const offset = 3
	stage, err := newRawRSAStage(map[string]any{
		"modulus":         n.String(),
		"exponent":        d.String(),
		"offset":          float64(offset),
		"block_size":      float64(blockSize),
		"xtea_key_output": "session_key",
		"key_length":      float64(2),
	})
	require.NoError(t, err)

	plainBlock := big.NewInt(65)
	cipherInt := new(big.Int).Exp(plainBlock, e, n)
	cipherBlock := make([]byte, blockSize)
	cb := cipherInt.Bytes()
	copy(cipherBlock[blockSize-len(cb):], cb)

	header := []byte{0xAA, 0xBB, 0xCC}
	input := append(append([]byte(nil), header...), cipherBlock...)

	ctx := NewContext()
	out := stage.Apply(input, ctx)

	assert.Equal(t, header, out[:offset], "bytes before the declared offset must be untouched")

	got := new(big.Int).SetBytes(out[offset : offset+blockSize])
	assert.Equal(t, plainBlock.String(), got.String())

	keyVal, ok := ctx.Get("session_key")
	require.True(t, ok)
	assert.Equal(t, value.KindBytes, keyVal.Kind)
	assert.Len(t, keyVal.Bytes, 2)
}

func TestBuildUnknownKindFails(t *testing.T) {
	_, err := Build([]schema.TransformDef{{Kind: "does_not_exist"}})
	assert.Error(t, err)
}

func TestBuildResolvesKnownKinds(t *testing.T) {
	p, err := Build([]schema.TransformDef{
		{Kind: "raw_rsa", Options: map[string]any{"modulus": "0x10001", "exponent": "0x3"}},
		{Kind: "xtea", Options: map[string]any{"key": "00112233445566778899AABBCCDDEEFF"}},
	})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
