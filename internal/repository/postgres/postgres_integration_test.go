//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/db"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
	"github.com/lalith-99/huddle/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var testDB *db.DB

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17.7",
		postgres.WithDatabase("huddle"),
		postgres.WithUsername("huddle"),
		postgres.WithPassword("huddle"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %s", err)
		return 1
	}
	testDB, err = db.New(ctx, dsn, zap.NewNop())
	if err != nil {
		log.Printf("failed to connect: %s", err)
		return 1
	}
	defer testDB.Close()

	// Twice: the migration must be re-runnable.
	for range 2 {
		if err := testDB.Migrate(ctx, migrations.FS); err != nil {
			log.Printf("failed to migrate: %s", err)
			return 1
		}
	}
	return m.Run()
}

func newUser(t *testing.T, b repository.Backend, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, b.Profiles.Ensure(context.Background(), id, name+"-"+id.String()[:8]+"@example.com"))
	dn := name
	_, err := b.Profiles.Update(context.Background(), id, models.ProfileUpdate{DisplayName: &dn})
	require.NoError(t, err)
	return id
}

func TestTeamTriggersAndDuplicates(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testDB.Pool())
	owner := newUser(t, b, "ada")
	slug := "acme-" + owner.String()[:8]

	team, err := b.Teams.Create(ctx, owner, models.TeamInput{Name: "Acme", Slug: slug})
	require.NoError(t, err)

	m, err := b.TeamMembers.Get(ctx, team.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.RoleOwner, m.Role)

	general, err := b.Channels.GetByName(ctx, team.ID, models.GeneralChannel)
	require.NoError(t, err)
	require.NotNil(t, general)

	_, err = b.Teams.Create(ctx, owner, models.TeamInput{Name: "Again", Slug: slug})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = b.Channels.Create(ctx, owner, models.ChannelInput{TeamID: team.ID, Name: models.GeneralChannel})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stats, err := b.Teams.Stats(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MemberCount)
	assert.Equal(t, 1, stats.ChannelCount)
}

func TestMessagesThreadsAndSearch(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testDB.Pool())
	a, c := newUser(t, b, "ada"), newUser(t, b, "cy")

	dm, err := b.DirectMessages.CreateOrGet(ctx, a, c)
	require.NoError(t, err)
	again, err := b.DirectMessages.CreateOrGet(ctx, c, a)
	require.NoError(t, err)
	assert.Equal(t, dm.ID, again.ID)

	conv := models.DMConversation(dm.ID)
	var last *models.Message
	for i := range 5 {
		last, err = b.Messages.Create(ctx, models.Message{Content: "walrus " + string(rune('a'+i)), AuthorID: a, DMID: &dm.ID})
		require.NoError(t, err)
	}
	_, err = b.Messages.Create(ctx, models.Message{Content: "reply", AuthorID: c, DMID: &dm.ID, ParentID: &last.ID})
	require.NoError(t, err)

	parent, err := b.Messages.GetByID(ctx, last.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, parent.ThreadCount)

	page, err := b.Messages.ListBefore(ctx, conv, nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, last.ID, page[0].ID)

	cur := models.Cursor{CreatedAt: page[2].CreatedAt, ID: page[2].ID}
	rest, err := b.Messages.ListBefore(ctx, conv, &cur, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	_, total, err := b.Messages.List(ctx, conv, 0, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	hits, err := b.Messages.Search(ctx, c, models.SearchQuery{Query: "walrus"})
	require.NoError(t, err)
	assert.Len(t, hits, 5)

	outsider := newUser(t, b, "eve")
	hits, err = b.Messages.Search(ctx, outsider, models.SearchQuery{Query: "walrus"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	ns, err := b.Notifications.ListForUser(ctx, c, 50)
	require.NoError(t, err)
	require.NotEmpty(t, ns)
	assert.Equal(t, models.NotificationDM, ns[0].Type)
	assert.Equal(t, dm.ID, *ns[0].Data.DMID)
}

func TestChangeFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBackend(testDB.Pool())
	a, c := newUser(t, b, "ada"), newUser(t, b, "cy")
	dm, err := b.DirectMessages.CreateOrGet(ctx, a, c)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	broker := realtime.NewBroker(logger)
	listener := realtime.NewPGListener(testDB.Pool(), broker, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = listener.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	sub, err := broker.Subscribe(ctx, realtime.ConversationFilters(models.DMConversation(dm.ID))...)
	require.NoError(t, err)
	defer sub.Close()

	// The listener connects asynchronously; keep sending until one lands.
	deadline := time.After(10 * time.Second)
	for {
		_, err := b.Messages.Create(ctx, models.Message{Content: "ping", AuthorID: a, DMID: &dm.ID})
		require.NoError(t, err)
		select {
		case ev := <-sub.C():
			assert.Equal(t, realtime.TableMessages, ev.Table)
			assert.Equal(t, realtime.KindInsert, ev.Kind)
			assert.Equal(t, dm.ID, *ev.DMID)
			return
		case <-time.After(200 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change event received")
		}
	}
}
