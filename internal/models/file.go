package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxFileSize   = 10 << 20
	MaxAvatarSize = 2 << 20
)

// Upload folders inside a team's storage prefix.
const (
	FolderMessages  = "messages"
	FolderAvatars   = "avatars"
	FolderDocuments = "documents"
)

func ValidFolder(folder string) bool {
	switch folder {
	case FolderMessages, FolderAvatars, FolderDocuments:
		return true
	}
	return false
}

type FileRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	TeamID     uuid.UUID `json:"team_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type FileWithUploader struct {
	FileRecord
	Uploader Profile `json:"uploader"`
}

type FileCategory string

const (
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
	CategoryAudio    FileCategory = "audio"
	CategoryDocument FileCategory = "document"
	CategoryArchive  FileCategory = "archive"
	CategoryOther    FileCategory = "other"
)

func (f FileRecord) Category() FileCategory {
	return CategoryOf(f.Type)
}

// CategoryOf buckets a MIME type for display.
func CategoryOf(mime string) FileCategory {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return CategoryImage
	case strings.HasPrefix(mime, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mime, "audio/"):
		return CategoryAudio
	case strings.Contains(mime, "pdf"),
		strings.Contains(mime, "document"),
		strings.Contains(mime, "text"):
		return CategoryDocument
	case strings.Contains(mime, "zip"),
		strings.Contains(mime, "rar"),
		strings.Contains(mime, "tar"):
		return CategoryArchive
	}
	return CategoryOther
}

// MessageTypeFor picks the message type for an attached file.
func MessageTypeFor(mime string) MessageType {
	if strings.HasPrefix(mime, "image/") {
		return MessageImage
	}
	return MessageFile
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with two decimals at most,
// e.g. 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + " " + sizeUnits[i]
}
