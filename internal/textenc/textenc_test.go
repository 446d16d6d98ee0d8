package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlainUTF8(t *testing.T) {
	out, err := Decode([]byte("KEY=value\r\nOTHER=x\n"))
	require.NoError(t, err)
	assert.Equal(t, "KEY=value\nOTHER=x\n", out)
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	out, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, []byte("name = \"demo\"")...))
	require.NoError(t, err)
	assert.Equal(t, "name = \"demo\"", out)
}

func TestDecodeUTF16LittleEndian(t *testing.T) {
	raw := []byte{0xFF, 0xFE, 'A', 0x00, '=', 0x00, '1', 0x00}
	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "A=1", out)
}
