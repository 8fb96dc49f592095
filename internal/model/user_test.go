package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeListValueScan(t *testing.T) {
	original := BadgeList{"starter", "bronze"}

	value, err := original.Value()
	require.NoError(t, err)

	var decoded BadgeList
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, original, decoded)
}

func TestBadgeListScanVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected BadgeList
		wantErr  bool
	}{
		{name: "nil column", input: nil, expected: BadgeList{}},
		{name: "empty bytes", input: []byte{}, expected: BadgeList{}},
		{name: "json bytes", input: []byte(`["starter"]`), expected: BadgeList{"starter"}},
		{name: "json string", input: `["starter","gold"]`, expected: BadgeList{"starter", "gold"}},
		{name: "unsupported type", input: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b BadgeList
			err := b.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, b)
		})
	}
}

func TestBadgeListNilValueMarshalsToEmptyArray(t *testing.T) {
	var b BadgeList
	value, err := b.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}

func TestBadgeListContains(t *testing.T) {
	b := BadgeList{"starter"}
	assert.True(t, b.Contains("starter"))
	assert.False(t, b.Contains("gold"))
	assert.False(t, BadgeList(nil).Contains("starter"))
}
