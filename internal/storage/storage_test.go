package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("http://localhost:8081/files/")

	require.NoError(t, s.Upload(ctx, "t/avatars/a.png", strings.NewReader("one"), 3, "image/png", false))
	err := s.Upload(ctx, "t/avatars/a.png", strings.NewReader("two"), 3, "image/png", false)
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, s.Upload(ctx, "t/avatars/a.png", strings.NewReader("two"), 3, "image/png", true))
	data, ct, ok := s.Get("t/avatars/a.png")
	require.True(t, ok)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, "image/png", ct)

	require.NoError(t, s.Remove(ctx, "t/avatars/a.png", "missing"))
	assert.Equal(t, 0, s.Len())
}

func TestPublicURLEscapesSegments(t *testing.T) {
	s := NewMemoryStore("http://localhost:8081/files")
	assert.Equal(t, "http://localhost:8081/files/team/documents/a%20b.pdf", s.PublicURL("team/documents/a b.pdf"))
}
