package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrGetDirectMessageIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	first, err := f.svc.CreateOrGetDirectMessage(ctx, alice, bob)
	require.NoError(t, err)
	second, err := f.svc.CreateOrGetDirectMessage(ctx, bob, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.User1ID.String() < first.User2ID.String())

	_, err = f.svc.CreateOrGetDirectMessage(ctx, alice, alice)
	requireKind(t, err, apperr.KindValidation, "Cannot create DM with yourself")

	_, err = f.svc.CreateOrGetDirectMessage(ctx, alice, uuid.New())
	requireKind(t, err, apperr.KindNotFound, "User not found")
}

func TestListDirectMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	withBob, err := f.svc.CreateOrGetDirectMessage(ctx, alice, bob)
	require.NoError(t, err)
	withCarol, err := f.svc.CreateOrGetDirectMessage(ctx, alice, carol)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, bob, models.MessageInput{Content: "one", DMID: &withBob.ID})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, bob, models.MessageInput{Content: "two", DMID: &withBob.ID})
	require.NoError(t, err)

	list, err := f.svc.ListDirectMessages(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, withBob.ID, list[0].ID, "most recent activity first")
	assert.Equal(t, bob, list[0].OtherUser.ID)
	assert.Equal(t, "two", list[0].LastMessage.Content)
	assert.Equal(t, 2, list[0].UnreadCount)
	assert.Equal(t, withCarol.ID, list[1].ID)
	assert.Nil(t, list[1].LastMessage)
	assert.Zero(t, list[1].UnreadCount)

	require.NoError(t, f.svc.MarkAllNotificationsRead(ctx, alice))
	list, err = f.svc.ListDirectMessages(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, list[0].UnreadCount)
}

func TestGetAndDeleteDirectMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	dm, err := f.svc.CreateOrGetDirectMessage(ctx, alice, bob)
	require.NoError(t, err)
	for _, c := range []string{"a", "b"} {
		_, err := f.svc.SendMessage(ctx, alice, models.MessageInput{Content: c, DMID: &dm.ID})
		require.NoError(t, err)
	}

	got, err := f.svc.GetDirectMessage(ctx, bob, dm.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "a", got.Messages[0].Content)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, []uuid.UUID{got.User1.ID, got.User2.ID})

	_, err = f.svc.GetDirectMessage(ctx, carol, dm.ID)
	requireKind(t, err, apperr.KindAccessDenied, "Access denied")
	err = f.svc.DeleteDirectMessage(ctx, carol, dm.ID)
	requireKind(t, err, apperr.KindAccessDenied, "")

	require.NoError(t, f.svc.DeleteDirectMessage(ctx, bob, dm.ID))
	_, err = f.svc.GetDirectMessage(ctx, alice, dm.ID)
	requireKind(t, err, apperr.KindNotFound, "Direct message not found")
}
