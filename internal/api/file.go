package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type FileHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewFileHandler(svc *service.Service, logger *zap.Logger) *FileHandler {
	return &FileHandler{svc: svc, logger: logger}
}

// formUpload opens the multipart field "file". The caller must invoke the
// returned close function.
func formUpload(c *gin.Context) (service.Upload, func(), bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file provided")
		return service.Upload{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Failed to read upload")
		return service.Upload{}, nil, false
	}
	up := service.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
	return up, func() { _ = f.Close() }, true
}

// Upload handles POST /v1/teams/:id/files (multipart fields "file" and
// optional "folder")
func (h *FileHandler) Upload(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	up, closeFn, valid := formUpload(c)
	if !valid {
		return
	}
	defer closeFn()

	rec, err := h.svc.UploadFile(c.Request.Context(), middleware.GetUserID(c), teamID, c.PostForm("folder"), up)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rec)
}

// List handles GET /v1/teams/:id/files?page=&limit=
func (h *FileHandler) List(c *gin.Context) {
	teamID, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, err := h.svc.ListTeamFiles(c.Request.Context(), middleware.GetUserID(c), teamID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	okPage(c, page.Files, page.Pagination)
}

// Get handles GET /v1/files/:id
func (h *FileHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	f, err := h.svc.GetFile(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// URL handles GET /v1/files/:id/url
func (h *FileHandler) URL(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	u, err := h.svc.FileURL(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"url": u})
}

// Delete handles DELETE /v1/files/:id
func (h *FileHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteFile(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "File deleted")
}
