package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"github.com/b2cuseradmin/useradmin/internal/users"
	"github.com/b2cuseradmin/useradmin/pkg/logger"
	"github.com/b2cuseradmin/useradmin/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// ObjectStore is the subset of object storage used for exports.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ExportHandler writes directory snapshots to object storage.
type ExportHandler struct {
	svc   users.UserService
	store ObjectStore
	ttl   time.Duration
	now   func() time.Time
}

func NewExportHandler(svc users.UserService, store ObjectStore, ttl time.Duration) *ExportHandler {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ExportHandler{svc: svc, store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Register routes under /users/export
func (h *ExportHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/users/export", h.Export)
}

type exportDocument struct {
	ExportedAt time.Time     `json:"exportedAt"`
	Count      int           `json:"count"`
	Users      []models.User `json:"users"`
}

// Export serves POST /users/export and returns a presigned download URL.
func (h *ExportHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	rid := c.GetString(middleware.RequestIDKey)

	list, err := h.svc.GetAll(ctx)
	if err != nil {
		logger.Errorf("export: listing users failed (request_id=%s): %v", rid, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	now := h.now()
	body, err := json.Marshal(exportDocument{ExportedAt: now, Count: len(list), Users: list})
	if err != nil {
		logger.Errorf("export: encoding failed (request_id=%s): %v", rid, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	key := "exports/users-" + now.Format("20060102T150405Z") + ".json"
	if err := h.store.UploadFile(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		logger.Errorf("export: upload failed (request_id=%s): %v", rid, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	url, err := h.store.GetPresignedURL(ctx, key, h.ttl)
	if err != nil {
		logger.Errorf("export: presign failed (request_id=%s): %v", rid, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	logger.Infof("export: wrote %d users to %s", len(list), key)
	c.JSON(http.StatusOK, gin.H{"key": key, "url": url, "count": len(list)})
}
