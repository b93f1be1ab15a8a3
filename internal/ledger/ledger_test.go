package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainguard/pkg/platform/sentinel"
)

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, "IDX~STATUS\x20", PrefixEnd("IDX~STATUS\x1f"))
	assert.Equal(t, "EVIDENCE;", PrefixEnd("EVIDENCE:"))
	assert.Equal(t, "b", PrefixEnd("a\xff"))
	assert.Equal(t, "", PrefixEnd("\xff\xff"))
}

func TestTxBuffer(t *testing.T) {
	t.Run("first read version wins", func(t *testing.T) {
		b := NewTxBuffer()
		b.RecordRead("k", 3)
		b.RecordRead("k", 7)
		assert.Equal(t, map[string]uint64{"k": 3}, b.Reads())
	})

	t.Run("writes are sorted and last write per key wins", func(t *testing.T) {
		b := NewTxBuffer()
		require.NoError(t, b.Put("b", []byte("1")))
		require.NoError(t, b.Put("a", []byte("2")))
		require.NoError(t, b.Delete("b"))

		writes := b.Writes()
		require.Len(t, writes, 2)
		assert.Equal(t, "a", writes[0].Key)
		assert.Equal(t, "b", writes[1].Key)
		assert.True(t, writes[1].Delete)
	})

	t.Run("put copies the value", func(t *testing.T) {
		b := NewTxBuffer()
		v := []byte("abc")
		require.NoError(t, b.Put("k", v))
		v[0] = 'x'
		w, ok := b.Buffered("k")
		require.True(t, ok)
		assert.Equal(t, []byte("abc"), w.Value)
	})

	t.Run("finished buffer rejects writes", func(t *testing.T) {
		b := NewTxBuffer()
		require.NoError(t, b.Finish())
		require.ErrorIs(t, b.Finish(), sentinel.ErrAlreadyUsed)
		require.ErrorIs(t, b.Put("k", nil), sentinel.ErrAlreadyUsed)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		b := NewTxBuffer()
		require.ErrorIs(t, b.Put("", []byte("v")), sentinel.ErrInvalidState)
	})
}
