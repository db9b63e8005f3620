package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/models"
)

// GroupWindow is how far apart two messages of one author may be and
// still render as one block.
const GroupWindow = 5 * time.Minute

type MessageGroup struct {
	AuthorID uuid.UUID                  `json:"author_id"`
	Author   models.Profile             `json:"author"`
	Messages []models.MessageWithAuthor `json:"messages"`
}

// GroupMessages folds an oldest-first list into runs of consecutive
// messages by the same author, each no more than window after the
// previous one.
func GroupMessages(msgs []models.MessageWithAuthor, window time.Duration) []MessageGroup {
	groups := make([]MessageGroup, 0)
	for _, m := range msgs {
		if n := len(groups); n > 0 {
			g := &groups[n-1]
			last := g.Messages[len(g.Messages)-1]
			if g.AuthorID == m.AuthorID && m.CreatedAt.Sub(last.CreatedAt) <= window {
				g.Messages = append(g.Messages, m)
				continue
			}
		}
		groups = append(groups, MessageGroup{
			AuthorID: m.AuthorID,
			Author:   m.Author,
			Messages: []models.MessageWithAuthor{m},
		})
	}
	return groups
}
