package replay

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLogParsesHeaderAndFields(t *testing.T) {
	log := `[00:00:01.500] SEND Ping (16 bytes)
  192.168.1.5:51000 -> 10.0.0.1:7000
  size: 16
  type: 1 (Ping)
  seq: 7
  label: "hello world"
[00:00:02.750] RECV Pong (4 bytes)
  seq: 7
`
	records, err := ReadLog(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "SEND", first.Direction)
	assert.Equal(t, "Ping", first.Name)

	typ, ok := first.Fields.Get("type")
	require.True(t, ok)
	n, _ := typ.AsInt64()
	assert.Equal(t, int64(1), n)

	label, ok := first.Fields.Get("label")
	require.True(t, ok)
	assert.Equal(t, "hello world", label.Str)

	seq, ok := first.Fields.Get("seq")
	require.True(t, ok)
	seqN, _ := seq.AsInt64()
	assert.Equal(t, int64(7), seqN)

	second := records[1]
	assert.Equal(t, "RECV", second.Direction)
	assert.Equal(t, "Pong", second.Name)
	assert.Greater(t, second.Timestamp, first.Timestamp)
}

func TestReadLogSkipsAddressAndRawLines(t *testing.T) {
	log := `[00:00:00.000] SEND Ping (8 bytes)
  10.0.0.1:1 -> 10.0.0.2:2
  raw: deadbeef
  seq: 1
`
	records, err := ReadLog(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Fields.Len())
}

func TestParseValueGrammar(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"quoted"`, "quoted"},
		{"3 (Ping)", "3"},
		{"42", "42"},
		{"3.5", "3.5"},
		{"plainword", "plainword"},
	}

	for _, c := range cases {
		v := parseValue(c.raw)
		switch c.raw {
		case `"quoted"`:
			assert.Equal(t, "quoted", v.Str)
		case "3 (Ping)", "42":
			n, ok := v.AsInt64()
			require.True(t, ok)
			assert.Equal(t, c.want, strconv.FormatInt(n, 10))
		case "3.5":
			assert.InDelta(t, 3.5, v.F64, 0.0001)
		default:
			assert.Equal(t, c.want, v.Str)
		}
	}
}
