package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

func TestReaderRegistry_ReplaceDoesNotMerge(t *testing.T) {
	reg := NewReaderRegistry(zap.NewNop())

	reg.Replace([]*model.Reader{{SerialNumber: "A"}, {SerialNumber: "B"}})
	require.Equal(t, 2, reg.Len())

	reg.Replace([]*model.Reader{{SerialNumber: "C"}})

	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Find("A")
	assert.False(t, ok, "previous batch should be superseded")
	reader, ok := reg.Find("C")
	require.True(t, ok)
	assert.Equal(t, "C", reader.SerialNumber)
	assert.False(t, reg.UpdatedAt().IsZero())
}

func TestReaderRegistry_FindUnknown(t *testing.T) {
	reg := NewReaderRegistry(zap.NewNop())

	reader, ok := reg.Find("missing")
	assert.False(t, ok)
	assert.Nil(t, reader)
}

func TestReaderRegistry_ListIsACopy(t *testing.T) {
	reg := NewReaderRegistry(zap.NewNop())
	batch := []*model.Reader{{SerialNumber: "A"}}
	reg.Replace(batch)

	batch[0] = &model.Reader{SerialNumber: "mutated"}
	list := reg.List()
	list[0] = nil

	reader, ok := reg.Find("A")
	require.True(t, ok)
	assert.Equal(t, "A", reader.SerialNumber)
}

func TestReaderRegistry_EmptyBatchClears(t *testing.T) {
	reg := NewReaderRegistry(zap.NewNop())
	reg.Replace([]*model.Reader{{SerialNumber: "A"}})

	reg.Replace(nil)

	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.List())
}
