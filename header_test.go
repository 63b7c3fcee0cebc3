package wirehttp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderSetCaseInsensitiveGet(t *testing.T) {
	tests := []struct {
		name  string
		set   string
		get   string
		value string
	}{
		{"exact casing", "Content-Type", "Content-Type", "application/json"},
		{"lowercase lookup", "Content-Type", "content-type", "application/json"},
		{"uppercase lookup", "X-Request-Id", "X-REQUEST-ID", "abc123"},
		{"mixed casing on both sides", "x-Custom-Header", "X-custom-HEADER", "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeaderSet()
			h.Set(tt.set, tt.value)
			got, ok := h.Get(tt.get)
			require.True(t, ok)
			require.Equal(t, tt.value, got)
		})
	}
}

func TestHeaderSetSetReplacesInPlace(t *testing.T) {
	h := NewHeaderSet()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Set("a", "3")

	require.Equal(t, 2, h.Len())
	iter := h.Iterate()
	require.Len(t, iter, 2)
	require.Equal(t, "A", iter[0].Name)
	require.Equal(t, "3", iter[0].Value)
	require.Equal(t, "B", iter[1].Name)
}

func TestHeaderSetMergeOverridesInOrder(t *testing.T) {
	base := NewHeaderSet()
	base.Set("Accept", "text/plain")
	base.Set("User-Agent", "base/1.0")

	override := NewHeaderSet()
	override.Set("User-Agent", "override/2.0")
	override.Set("X-Extra", "yes")

	base.Merge(override)

	v, ok := base.Get("User-Agent")
	require.True(t, ok)
	require.Equal(t, "override/2.0", v)

	v, ok = base.Get("X-Extra")
	require.True(t, ok)
	require.Equal(t, "yes", v)

	v, ok = base.Get("Accept")
	require.True(t, ok)
	require.Equal(t, "text/plain", v)
}

func TestHeaderSetRemove(t *testing.T) {
	h := NewHeaderSet()
	h.Set("A", "1")
	h.Set("B", "2")
	h.Remove("a")

	_, ok := h.Get("A")
	require.False(t, ok)
	require.Equal(t, 1, h.Len())
}

func TestHeaderSetClone(t *testing.T) {
	h := NewHeaderSet()
	h.Set("A", "1")
	clone := h.Clone()
	clone.Set("A", "2")

	v, _ := h.Get("A")
	require.Equal(t, "1", v)
	v, _ = clone.Get("A")
	require.Equal(t, "2", v)
}
