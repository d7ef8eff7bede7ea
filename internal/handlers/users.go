package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/services"
	"github.com/freshapi/freshapi/pkg/response"
)

type UserHandler struct {
	svc *services.AccessService
}

type assignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

func NewUserHandler(svc *services.AccessService) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: access service is required")
	}
	return &UserHandler{svc: svc}, nil
}

// GET /api/users?resource=
//
// Each user's actions on the resource are resolved in one batch.
func (h *UserHandler) List(c *gin.Context) {
	resource := strings.TrimSpace(c.Query("resource"))
	users, err := h.svc.ListUsersWithPermissions(requestContext(c), resource)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Total: len(users)})
}

// GET /api/users/:id/permissions
func (h *UserHandler) Permissions(c *gin.Context) {
	perms, err := h.svc.ListUserPermissions(requestContext(c), pathID(c, "id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// PUT /api/users/:id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	var body assignRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.svc.AssignUserRole(requestContext(c), pathID(c, "id"), body.RoleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:id/permissions/:permissionID/grant
func (h *UserHandler) Grant(c *gin.Context) {
	h.override(c, h.svc.GrantUserPermission, "granted")
}

// POST /api/users/:id/permissions/:permissionID/deny
func (h *UserHandler) Deny(c *gin.Context) {
	h.override(c, h.svc.DenyUserPermission, "denied")
}

// POST /api/users/:id/permissions/:permissionID/revoke
func (h *UserHandler) Revoke(c *gin.Context) {
	h.override(c, h.svc.RevokeUserPermission, "revoked")
}

// DELETE /api/users/:id/permissions/:permissionID
func (h *UserHandler) Clear(c *gin.Context) {
	h.override(c, h.svc.ClearUserPermission, "cleared")
}

type overrideFunc func(ctx context.Context, userID, permissionID string) error

func (h *UserHandler) override(c *gin.Context, fn overrideFunc, outcome string) {
	if err := fn(requestContext(c), pathID(c, "id"), pathID(c, "permissionID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{outcome: true})
}
