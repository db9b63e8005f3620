package service

import (
	"context"
	"strings"
	"testing"

	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textUpload(name, body string) Upload {
	return Upload{Name: name, ContentType: "text/plain", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestUploadFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	team, general := f.team(t, alice, "acme", bob)

	_, err := f.svc.UploadFile(ctx, carol, team.ID, models.FolderMessages, textUpload("a.txt", "x"))
	requireKind(t, err, apperr.KindAccessDenied, "Access denied")

	_, err = f.svc.UploadFile(ctx, bob, team.ID, "secrets", textUpload("a.txt", "x"))
	requireKind(t, err, apperr.KindValidation, "Invalid folder")

	big := Upload{Name: "big.bin", Size: models.MaxFileSize + 1, Body: strings.NewReader("")}
	_, err = f.svc.UploadFile(ctx, bob, team.ID, models.FolderMessages, big)
	requireKind(t, err, apperr.KindValidation, "File size too large. Maximum size is 10MB.")

	rec, err := f.svc.UploadFile(ctx, bob, team.ID, "", textUpload("../Report.TXT", "quarterly"))
	require.NoError(t, err)
	assert.Equal(t, "Report.TXT", rec.Name)
	assert.Equal(t, int64(len("quarterly")), rec.Size)
	assert.Equal(t, bob, rec.UploadedBy)
	assert.True(t, strings.HasPrefix(rec.URL, "http://files.test/"+team.ID.String()+"/messages/"), rec.URL)
	assert.True(t, strings.HasSuffix(rec.URL, ".txt"), rec.URL)

	url, err := f.svc.FileURL(ctx, alice, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.URL, url)

	msg, err := f.svc.SendMessage(ctx, bob, models.MessageInput{ChannelID: &general.ID, FileID: &rec.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MessageFile, msg.Type)
	assert.Equal(t, rec.URL, *msg.FileURL)

	_, err = f.svc.SendMessage(ctx, alice, models.MessageInput{ChannelID: &general.ID, FileID: &rec.ID})
	requireKind(t, err, apperr.KindAccessDenied, "")

	page, err := f.svc.ListTeamFiles(ctx, alice, team.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Files, 1)
	assert.Equal(t, bob, page.Files[0].Uploader.ID)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 20, Total: 1}, page.Pagination)
}

func TestDeleteFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	team, _ := f.team(t, alice, "acme", bob, carol)

	rec, err := f.svc.UploadFile(ctx, bob, team.ID, models.FolderDocuments, textUpload("a.txt", "x"))
	require.NoError(t, err)

	err = f.svc.DeleteFile(ctx, carol, rec.ID)
	requireKind(t, err, apperr.KindAccessDenied, "Can only delete your own files")

	// the owner may remove anyone's file
	require.NoError(t, f.svc.DeleteFile(ctx, alice, rec.ID))
	assert.Equal(t, 0, f.blobs.Len())

	_, err = f.svc.GetFile(ctx, bob, rec.ID)
	requireKind(t, err, apperr.KindNotFound, "File not found")
}
