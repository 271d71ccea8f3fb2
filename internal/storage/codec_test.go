package storage

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"tracker/internal/core"
)

func TestEncodeEmptyLedger(t *testing.T) {
	data, err := Encode(nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestDecodeRejectsNonArrays(t *testing.T) {
	for _, in := range []string{"", "  ", "null", "{}", `"x"`} {
		_, err := Decode([]byte(in))
		assert.Error(t, err)
	}
}

func TestNextID(t *testing.T) {
	assert.Equal(t, int64(1), NextID(nil))
	assert.Equal(t, int64(10), NextID([]core.Transaction{{ID: 3}, {ID: 9}, {}}))
}

func TestRemoveIndexDoesNotAlias(t *testing.T) {
	txs := []core.Transaction{{ID: 1}, {ID: 2}, {ID: 3}}
	out := RemoveIndex(txs, 0)

	assert.Equal(t, []core.Transaction{{ID: 2}, {ID: 3}}, out)
	assert.Equal(t, int64(1), txs[0].ID)
}

func TestIndexOfID(t *testing.T) {
	txs := []core.Transaction{{ID: 4}, {ID: 7}}
	assert.Equal(t, 1, IndexOfID(txs, 7))
	assert.Equal(t, -1, IndexOfID(txs, 5))
	assert.Equal(t, -1, IndexOfID(txs, 0))
}
