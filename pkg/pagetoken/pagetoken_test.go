package pagetoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 9, 35, 36, 1234567, 1<<47 - 1} {
		token := Encode(id)
		decoded, ok := Decode(token)
		require.True(t, ok, "token %q", token)
		assert.Equal(t, id, decoded)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "  ", "!!", "-1", "0", "zzzzzzzzzzzzzzzzzz"} {
		_, ok := Decode(token)
		assert.False(t, ok, "token %q", token)
	}
}
