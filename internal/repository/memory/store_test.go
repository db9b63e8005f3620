package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	evs []realtime.ChangeEvent
}

func (r *recorder) Publish(ev realtime.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *recorder) tables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Table + ":" + string(ev.Kind)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = nil
}

func newTestStore(t *testing.T) (*Store, repository.Backend, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(WithPublisher(rec))
	return s, s.Backend(), rec
}

func user(t *testing.T, b repository.Backend, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, b.Profiles.Ensure(context.Background(), id, name+"@example.com"))
	return id
}

func TestTeamCreateTrigger(t *testing.T) {
	ctx := context.Background()
	_, b, _ := newTestStore(t)
	owner := user(t, b, "ada")

	team, err := b.Teams.Create(ctx, owner, models.TeamInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	m, err := b.TeamMembers.Get(ctx, team.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleOwner, m.Role)

	general, err := b.Channels.GetByName(ctx, team.ID, models.GeneralChannel)
	require.NoError(t, err)
	require.NotNil(t, general)
	assert.False(t, general.IsPrivate)

	_, err = b.Teams.Create(ctx, owner, models.TeamInput{Name: "Other", Slug: "acme"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreateOrGetDMIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, b, _ := newTestStore(t)
	a, c := user(t, b, "ada"), user(t, b, "cy")

	first, err := b.DirectMessages.CreateOrGet(ctx, a, c)
	require.NoError(t, err)
	second, err := b.DirectMessages.CreateOrGet(ctx, c, a)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.User1ID.String() < first.User2ID.String())
}

func TestMessageThreadAndCascade(t *testing.T) {
	ctx := context.Background()
	_, b, rec := newTestStore(t)
	a, c := user(t, b, "ada"), user(t, b, "cy")
	dm, err := b.DirectMessages.CreateOrGet(ctx, a, c)
	require.NoError(t, err)

	parent, err := b.Messages.Create(ctx, models.Message{Content: "root", AuthorID: a, DMID: &dm.ID})
	require.NoError(t, err)
	reply, err := b.Messages.Create(ctx, models.Message{Content: "re", AuthorID: c, DMID: &dm.ID, ParentID: &parent.ID})
	require.NoError(t, err)

	got, err := b.Messages.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ThreadCount)

	_, err = b.Reactions.Add(ctx, parent.ID, c, "+1")
	require.NoError(t, err)
	_, err = b.Reactions.Add(ctx, parent.ID, c, "+1")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	list, total, err := b.Messages.List(ctx, models.DMConversation(dm.ID), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total, "replies are not top-level")
	require.Len(t, list, 1)
	assert.Len(t, list[0].Reactions, 1)

	replies, err := b.Messages.ListReplies(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	rec.reset()
	require.NoError(t, b.Messages.Delete(ctx, parent.ID))
	gone, err := b.Messages.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Contains(t, rec.tables(), "messages:delete")
}

func TestMessageRequiresExactlyOneContainer(t *testing.T) {
	ctx := context.Background()
	_, b, _ := newTestStore(t)
	a := user(t, b, "ada")
	id := uuid.New()

	_, err := b.Messages.Create(ctx, models.Message{Content: "x", AuthorID: a})
	assert.Error(t, err)
	_, err = b.Messages.Create(ctx, models.Message{Content: "x", AuthorID: a, ChannelID: &id, DMID: &id})
	assert.Error(t, err)
}

func TestNotificationsTrigger(t *testing.T) {
	ctx := context.Background()
	_, b, rec := newTestStore(t)
	a, c := user(t, b, "ada"), user(t, b, "cy")

	team, err := b.Teams.Create(ctx, a, models.TeamInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	_, err = b.TeamMembers.Add(ctx, team.ID, c, models.RoleMember)
	require.NoError(t, err)
	general, err := b.Channels.GetByName(ctx, team.ID, models.GeneralChannel)
	require.NoError(t, err)

	_, err = b.Messages.Create(ctx, models.Message{Content: "hey @CY look", AuthorID: a, ChannelID: &general.ID})
	require.NoError(t, err)

	dm, err := b.DirectMessages.CreateOrGet(ctx, a, c)
	require.NoError(t, err)
	_, err = b.Messages.Create(ctx, models.Message{Content: "psst", AuthorID: a, DMID: &dm.ID})
	require.NoError(t, err)

	ns, err := b.Notifications.ListForUser(ctx, c, 50)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, models.NotificationDM, ns[0].Type)
	assert.Equal(t, models.NotificationMention, ns[1].Type)
	assert.Equal(t, "/team/"+team.ID.String()+"/channel/"+general.ID.String(), ns[1].Link())

	mine, err := b.Notifications.ListForUser(ctx, a, 50)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// Scoped to the owner.
	ok, err := b.Notifications.MarkRead(ctx, a, ns[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Notifications.MarkAllRead(ctx, c))
	ns, err = b.Notifications.ListForUser(ctx, c, 50)
	require.NoError(t, err)
	for _, n := range ns {
		assert.True(t, n.Read)
	}
	assert.Contains(t, rec.tables(), "notifications:update")

	require.NoError(t, b.Notifications.DeleteAll(ctx, c))
	ns, err = b.Notifications.ListForUser(ctx, c, 50)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestTeamDeleteCascades(t *testing.T) {
	ctx := context.Background()
	_, b, _ := newTestStore(t)
	a := user(t, b, "ada")
	team, err := b.Teams.Create(ctx, a, models.TeamInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	general, err := b.Channels.GetByName(ctx, team.ID, models.GeneralChannel)
	require.NoError(t, err)
	msg, err := b.Messages.Create(ctx, models.Message{Content: "hi", AuthorID: a, ChannelID: &general.ID})
	require.NoError(t, err)

	require.NoError(t, b.Teams.Delete(ctx, team.ID))

	ch, err := b.Channels.GetByID(ctx, general.ID)
	require.NoError(t, err)
	assert.Nil(t, ch)
	m, err := b.Messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
	teams, err := b.Teams.ListForUser(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestPresenceUpsertStampsClock(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rec := &recorder{}
	s := New(WithPublisher(rec), WithClock(func() time.Time { return at }))
	b := s.Backend()
	a := user(t, b, "ada")

	p, err := b.Presence.Upsert(ctx, a, models.StatusOnline)
	require.NoError(t, err)
	assert.True(t, p.LastSeen.After(at.Add(-time.Second)))

	prof, err := b.Profiles.GetByID(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, prof.Status)
	assert.Equal(t, []string{"user_presence:update"}, rec.tables())
}
