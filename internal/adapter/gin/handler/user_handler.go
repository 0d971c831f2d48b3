package handler

import (
	"net/http"

	domain "mongo-user-service/internal/domain/user"
	"mongo-user-service/internal/usecase/user"
	pkgerrors "mongo-user-service/pkg/errors"
	"mongo-user-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreatedMessage is the body returned by a successful create.
const CreatedMessage = "user added"

// ResourceIDHeader carries the identifier assigned on create.
const ResourceIDHeader = "X-Resource-ID"

// UserRequest is the JSON body of create and update. A client-supplied _id is not
// part of it and is ignored whatever its value.
type UserRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (r *UserRequest) toUser() *domain.User {
	return &domain.User{Name: r.Name, Email: r.Email, Phone: r.Phone}
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUser handles POST /api/
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create user request", zap.Error(err))
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.uc.CreateUser(c.Request.Context(), req.toUser())
	if err != nil {
		log.Error("Gin CreateUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.Header("Location", "/api/"+id.Hex())
	c.Header(ResourceIDHeader, id.Hex())
	c.String(http.StatusOK, CreatedMessage)
}

// ListUsers handles GET /api/
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Error("Gin ListUsers failed", zap.Error(err))
		h.handleError(c, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}

	c.JSON(http.StatusOK, users)
}

// GetUser handles GET /api/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	u, err := h.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, u)
}

// UpdateUser handles PUT /api/:id and responds with the document as it was before the update.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("Invalid update user request", zap.Error(err))
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	previous, err := h.uc.UpdateUser(c.Request.Context(), id, req.toUser())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, previous)
}

// DeleteUser handles DELETE /api/:id and responds with the removed document.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	deleted, err := h.uc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, deleted)
}

// parseID reads the :id path parameter, writing a 400 when it is not a valid ObjectID.
func (h *UserHandler) parseID(c *gin.Context) (primitive.ObjectID, bool) {
	raw := c.Param("id")
	id, err := domain.ParseID(raw)
	if err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("Invalid user ID", zap.String("id", raw), zap.Error(err))
		c.String(http.StatusBadRequest, pkgerrors.NewValidationError("id", err.Error()).Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

// handleError converts usecase errors to plain-text HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	c.String(pkgerrors.StatusOf(err), pkgerrors.Message(err))
}
