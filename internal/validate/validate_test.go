package validate

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSlug(t *testing.T) {
	for _, s := range []string{"acme", "acme-corp", "a1-b2-c3", "42"} {
		assert.True(t, IsSlug(s), s)
	}
	for _, s := range []string{"", "Acme", "acme--corp", "-acme", "acme-", "acme corp", "acme_corp"} {
		assert.False(t, IsSlug(s), s)
	}
}

func TestStructTeamInput(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(models.TeamInput{Name: "Acme", Slug: "acme"}))

	err := v.Struct(models.TeamInput{Name: "", Slug: "Bad Slug"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	fields := v.Fields(models.TeamInput{Name: "", Slug: "Bad Slug"})
	require.Len(t, fields, 2)
	assert.Equal(t, "Name", fields[0].Field)
	assert.Equal(t, "Slug", fields[1].Field)
}

func TestStructStatus(t *testing.T) {
	v := New()

	good := models.StatusBusy
	assert.NoError(t, v.Struct(models.ProfileUpdate{Status: &good}))

	bad := models.Status("sleeping")
	err := v.Struct(models.ProfileUpdate{Status: &bad})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "online, away, busy, offline"))

	assert.NoError(t, v.Struct(models.ProfileUpdate{}))
}

func TestStructChannelInput(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(models.ChannelInput{TeamID: uuid.New(), Name: "random"}))
	assert.Error(t, v.Struct(models.ChannelInput{Name: "random"}))
	assert.Error(t, v.Struct(models.ChannelInput{TeamID: uuid.New(), Name: "Has Spaces"}))
}
