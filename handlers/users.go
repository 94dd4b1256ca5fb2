package handlers

import (
	"net/http"
	"strings"

	"github.com/b2cuseradmin/useradmin/internal/models"
	"github.com/b2cuseradmin/useradmin/internal/users"
	"github.com/b2cuseradmin/useradmin/pkg/logger"
	"github.com/b2cuseradmin/useradmin/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// UserHandler exposes the user directory under <group>/users.
type UserHandler struct {
	svc users.UserService
}

func NewUserHandler(svc users.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register routes under /users
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	u := rg.Group("/users")
	u.GET("", h.List)
	u.POST("", h.Create)
	u.PUT("/:objectId", h.Update)
	u.DELETE("/:objectId", h.Delete)
}

// List serves GET /users[?objectId=][&emailSearch=]. objectId wins when both are given.
func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if objectID := c.Query("objectId"); objectID != "" {
		if !users.ValidObjectID(objectID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "objectId must be a UUID"})
			return
		}
		u, err := h.svc.GetByObjectID(ctx, objectID)
		if err != nil {
			h.fail(c, "getting user", err)
			return
		}
		if u == nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusOK, u)
		return
	}

	var (
		list []models.User
		err  error
	)
	if search := c.Query("emailSearch"); search == "" {
		list, err = h.svc.GetAll(ctx)
	} else {
		list, err = h.svc.GetByEmail(ctx, search)
	}
	if err != nil {
		h.fail(c, "getting users", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create serves POST /users. The directory assigns the objectId.
func (h *UserHandler) Create(c *gin.Context) {
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debugf("rejecting request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "creating user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Update serves PUT /users/:objectId as a full replace keyed by the body's objectId.
// An empty body objectId is taken from the path; a different one is rejected.
func (h *UserHandler) Update(c *gin.Context) {
	pathID := c.Param("objectId")
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debugf("rejecting request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ObjectID == "" {
		req.ObjectID = pathID
	} else if !strings.EqualFold(strings.TrimSpace(req.ObjectID), pathID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "objectId in body does not match path"})
		return
	}
	if err := h.svc.Update(c.Request.Context(), &req); err != nil {
		h.fail(c, "updating user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete serves DELETE /users/:objectId.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("objectId")); err != nil {
		h.fail(c, "deleting user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail maps a directory error to a status. Provider detail goes to the log only.
func (h *UserHandler) fail(c *gin.Context, action string, err error) {
	rid := c.GetString(middleware.RequestIDKey)
	switch users.KindOf(err) {
	case users.KindNotFound:
		logger.Infof("%s: user not found (request_id=%s): %v", action, rid, err)
		c.Status(http.StatusNotFound)
	case users.KindInvalid:
		logger.Infof("%s: rejected (request_id=%s): %v", action, rid, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
	case users.KindConflict:
		logger.Warnf("%s: conflict (request_id=%s): %v", action, rid, err)
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
	default:
		logger.Errorf("an error occurred while %s (request_id=%s): %v", action, rid, err)
		c.Status(http.StatusInternalServerError)
	}
}
