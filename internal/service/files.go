package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"go.uber.org/zap"
)

const defaultFilePage = 20

type FilePage struct {
	Files      []models.FileWithUploader `json:"files"`
	Pagination models.Pagination         `json:"pagination"`
}

// UploadFile stores a team file under <team>/<folder>/ and records its
// metadata. If the record cannot be written the stored object is removed.
func (s *Service) UploadFile(ctx context.Context, userID, teamID uuid.UUID, folder string, up Upload) (_ *models.FileRecord, err error) {
	defer s.observe("upload_file", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if folder == "" {
		folder = models.FolderMessages
	}
	if !models.ValidFolder(folder) {
		return nil, apperr.Validation("Invalid folder")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(up.Name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apperr.Validation("File name is required")
	}
	if up.Size > models.MaxFileSize {
		return nil, apperr.Validation("File size too large. Maximum size is 10MB.")
	}
	m, err := s.b.TeamMembers.Get(ctx, teamID, userID)
	if err != nil {
		return nil, s.fail("Failed to upload file", err)
	}
	if m == nil {
		return nil, apperr.AccessDenied("Access denied")
	}

	body := &countingReader{r: io.LimitReader(up.Body, models.MaxFileSize+1)}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.fileKey(teamID, folder, name)
	if err := s.store.Upload(ctx, key, body, up.Size, contentType, false); err != nil {
		return nil, s.fail("Failed to upload file", err)
	}
	if body.n > models.MaxFileSize {
		s.removeBlob(ctx, key)
		return nil, apperr.Validation("File size too large. Maximum size is 10MB.")
	}

	rec, err := s.b.Files.Create(ctx, models.FileRecord{
		Name:       name,
		Size:       body.n,
		Type:       contentType,
		URL:        s.store.PublicURL(key),
		UploadedBy: userID,
		TeamID:     teamID,
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, s.fail("Failed to save file metadata", err)
	}
	s.publish(ctx, events.Event{Action: events.FileUploaded, ActorID: userID, TeamID: &teamID})
	return rec, nil
}

func (s *Service) fileKey(teamID uuid.UUID, folder, name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "" {
		ext = "bin"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%s/%d_%s.%s", teamID, folder, s.now().UnixMilli(), suffix, ext)
}

// keyFromURL recovers the storage key of a URL this store handed out.
func (s *Service) keyFromURL(raw string) (string, bool) {
	if s.store == nil {
		return "", false
	}
	prefix := s.store.PublicURL("")
	rest, ok := strings.CutPrefix(raw, prefix)
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}

// loadFile authorizes the caller as a member of the file's team.
func (s *Service) loadFile(ctx context.Context, userID, fileID uuid.UUID) (*models.FileRecord, *models.TeamMember, error) {
	f, err := s.b.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, s.fail("Failed to load file", err)
	}
	if f == nil {
		return nil, nil, apperr.NotFound("File not found")
	}
	m, err := s.b.TeamMembers.Get(ctx, f.TeamID, userID)
	if err != nil {
		return nil, nil, s.fail("Failed to load file", err)
	}
	if m == nil {
		return nil, nil, apperr.AccessDenied("Access denied")
	}
	return f, m, nil
}

func (s *Service) GetFile(ctx context.Context, userID, fileID uuid.UUID) (_ *models.FileRecord, err error) {
	defer s.observe("get_file", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	f, _, err := s.loadFile(ctx, userID, fileID)
	return f, err
}

// FileURL returns the public address of a stored file.
func (s *Service) FileURL(ctx context.Context, userID, fileID uuid.UUID) (_ string, err error) {
	defer s.observe("file_url", &err)
	if err := requireUser(userID); err != nil {
		return "", err
	}
	f, _, err := s.loadFile(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return f.URL, nil
}

// DeleteFile is allowed to the uploader and to team owners and admins. A
// storage failure is logged and the record is deleted anyway.
func (s *Service) DeleteFile(ctx context.Context, userID, fileID uuid.UUID) (err error) {
	defer s.observe("delete_file", &err)
	if err := requireUser(userID); err != nil {
		return err
	}
	f, m, err := s.loadFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if f.UploadedBy != userID && !m.Role.CanManage() {
		return apperr.AccessDenied("Can only delete your own files")
	}

	if key, ok := s.keyFromURL(f.URL); ok {
		if err := s.store.Remove(ctx, key); err != nil {
			s.logger.Warn("failed to remove file from storage",
				zap.String("file_id", f.ID.String()),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	if err := s.b.Files.Delete(ctx, f.ID); err != nil {
		return s.fail("Failed to delete file", err)
	}
	s.publish(ctx, events.Event{Action: events.FileDeleted, ActorID: userID, TeamID: &f.TeamID})
	return nil
}

// ListTeamFiles returns one page of the team's files, newest first.
func (s *Service) ListTeamFiles(ctx context.Context, userID, teamID uuid.UUID, page, limit int) (_ *FilePage, err error) {
	defer s.observe("list_team_files", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.teamMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	page, limit = pageBounds(page, limit, defaultFilePage)
	files, total, err := s.b.Files.ListByTeam(ctx, teamID, (page-1)*limit, limit)
	if err != nil {
		return nil, s.fail("Failed to load files", err)
	}
	return &FilePage{Files: files, Pagination: models.NewPagination(page, limit, total)}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
