package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/lalith-99/huddle/internal/apperr"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/models"
	"go.uber.org/zap"
)

const avatarSide = 256

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// GetProfile returns target's profile, or the caller's own when target is nil.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID, target *uuid.UUID) (_ *models.Profile, err error) {
	defer s.observe("get_profile", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	id := userID
	if target != nil {
		id = *target
	}
	p, err := s.b.Profiles.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("Failed to load profile", err)
	}
	if p == nil {
		return nil, apperr.NotFound("User not found")
	}
	return p, nil
}

// UpdateProfile patches the caller's profile. A status change is recorded
// as presence, which also stamps last_seen.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, patch models.ProfileUpdate) (_ *models.Profile, err error) {
	defer s.observe("update_profile", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if patch.DisplayName != nil {
		name := strings.TrimSpace(*patch.DisplayName)
		patch.DisplayName = &name
	}
	if err := s.v.Struct(patch); err != nil {
		return nil, err
	}

	status := patch.Status
	patch.Status = nil
	p, err := s.b.Profiles.Update(ctx, userID, patch)
	if err != nil {
		return nil, s.fail("Failed to update profile", err)
	}
	if p == nil {
		return nil, apperr.NotFound("User not found")
	}
	if status != nil {
		pres, err := s.b.Presence.Upsert(ctx, userID, *status)
		if err != nil {
			return nil, s.fail("Failed to update profile", err)
		}
		p.Status = pres.Status
		p.LastSeen = pres.LastSeen
	}
	s.publish(ctx, events.Event{Action: events.ProfileUpdated, ActorID: userID})
	return p, nil
}

// UpdateStatus records the caller's presence.
func (s *Service) UpdateStatus(ctx context.Context, userID uuid.UUID, status models.Status) (_ *models.UserPresence, err error) {
	defer s.observe("update_status", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	pres, err := s.b.Presence.Upsert(ctx, userID, status)
	if err != nil {
		return nil, s.fail("Failed to update status", err)
	}
	s.publish(ctx, events.Event{Action: events.StatusUpdated, ActorID: userID})
	return pres, nil
}

// UploadAvatar crops the image to a square thumbnail, stores it and points
// the caller's profile at it. The previous avatar is removed best-effort.
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, up Upload) (_ *models.Profile, err error) {
	defer s.observe("upload_avatar", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return nil, apperr.Validation("File must be an image")
	}
	if up.Size > models.MaxAvatarSize {
		return nil, apperr.Validation("File size must be less than 2MB")
	}
	current, err := s.b.Profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, s.fail("Failed to upload avatar", err)
	}
	if current == nil {
		return nil, apperr.NotFound("User not found")
	}

	raw, err := io.ReadAll(io.LimitReader(up.Body, models.MaxAvatarSize+1))
	if err != nil {
		return nil, apperr.Validation("Failed to read upload")
	}
	if len(raw) > models.MaxAvatarSize {
		return nil, apperr.Validation("File size must be less than 2MB")
	}
	data, contentType, ext, err := thumbnail(bytes.NewReader(raw), up.ContentType)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s-%d.%s", models.FolderAvatars, userID, s.now().UnixMilli(), ext)
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType, true); err != nil {
		return nil, s.fail("Failed to upload avatar", err)
	}

	avatarURL := s.store.PublicURL(key)
	p, err := s.b.Profiles.Update(ctx, userID, models.ProfileUpdate{AvatarURL: &avatarURL})
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, s.fail("Failed to update profile", err)
	}
	if p == nil {
		s.removeBlob(ctx, key)
		return nil, apperr.NotFound("User not found")
	}
	if current.AvatarURL != nil {
		if old, ok := s.keyFromURL(*current.AvatarURL); ok && old != key {
			s.removeBlob(ctx, old)
		}
	}
	s.publish(ctx, events.Event{Action: events.ProfileUpdated, ActorID: userID})
	return p, nil
}

// thumbnail decodes an image and re-encodes it as a centered square.
func thumbnail(r io.Reader, contentType string) ([]byte, string, string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", "", apperr.Validation("Unsupported image format")
	}
	img = imaging.Fill(img, avatarSide, avatarSide, imaging.Center, imaging.Lanczos)

	format, outType, ext := imaging.JPEG, "image/jpeg", "jpg"
	switch contentType {
	case "image/png":
		format, outType, ext = imaging.PNG, "image/png", "png"
	case "image/gif":
		format, outType, ext = imaging.GIF, "image/gif", "gif"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, "", "", apperr.Backend("Failed to process image", err)
	}
	return buf.Bytes(), outType, ext, nil
}

// GetPresence returns the effective presence of userIDs. Users that never
// reported read as offline.
func (s *Service) GetPresence(ctx context.Context, userID uuid.UUID, userIDs []uuid.UUID) (_ []models.UserPresence, err error) {
	defer s.observe("get_presence", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return []models.UserPresence{}, nil
	}
	rows, err := s.b.Presence.Get(ctx, userIDs)
	if err != nil {
		return nil, s.fail("Failed to load presence", err)
	}
	byUser := make(map[uuid.UUID]models.UserPresence, len(rows))
	for _, p := range rows {
		byUser[p.UserID] = p
	}

	now := s.now()
	out := make([]models.UserPresence, 0, len(userIDs))
	for _, id := range userIDs {
		p, ok := byUser[id]
		if !ok {
			out = append(out, models.UserPresence{UserID: id, Status: models.StatusOffline})
			continue
		}
		p.Status = p.EffectiveStatus(now)
		out = append(out, p)
	}
	return out, nil
}

// ListPresence returns every stored presence with staleness applied.
func (s *Service) ListPresence(ctx context.Context, userID uuid.UUID) (_ []models.UserPresence, err error) {
	defer s.observe("list_presence", &err)
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	rows, err := s.b.Presence.List(ctx)
	if err != nil {
		return nil, s.fail("Failed to load presence", err)
	}
	now := s.now()
	for i := range rows {
		rows[i].Status = rows[i].EffectiveStatus(now)
	}
	return rows, nil
}

func (s *Service) removeBlob(ctx context.Context, keys ...string) {
	if err := s.store.Remove(ctx, keys...); err != nil {
		s.logger.Warn("failed to remove stored objects", zap.Strings("keys", keys), zap.Error(err))
	}
}
