package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageEmpty(t *testing.T) {
	p := NewPage(0, 1, 10)
	assert.Equal(t, 0, p.TotalPages)
	assert.Nil(t, p.NextPage)
	assert.Nil(t, p.PreviousPage)
}

func TestNewPageMiddle(t *testing.T) {
	p := NewPage(25, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	require.NotNil(t, p.NextPage)
	require.NotNil(t, p.PreviousPage)
	assert.Equal(t, 3, *p.NextPage)
	assert.Equal(t, 1, *p.PreviousPage)
}

func TestNewPageLast(t *testing.T) {
	p := NewPage(25, 3, 10)
	assert.Nil(t, p.NextPage)
	assert.Equal(t, 2, *p.PreviousPage)
}

func TestNewPageClampsLimit(t *testing.T) {
	p := NewPage(500, 0, 1000)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 5, p.TotalPages)
}

func TestNewReferenceShape(t *testing.T) {
	a := NewReference(PurposeP2P)
	b := NewReference(PurposeP2P)
	assert.NotEqual(t, a, b)
	parts := strings.Split(a, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "p2p", parts[0])
	assert.Len(t, parts[1], 36)
}
