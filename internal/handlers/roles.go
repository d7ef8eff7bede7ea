package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/services"
	"github.com/freshapi/freshapi/pkg/response"
)

type RoleHandler struct {
	svc *services.AccessService
}

func NewRoleHandler(svc *services.AccessService) (*RoleHandler, error) {
	if svc == nil {
		return nil, errors.New("role handler: access service is required")
	}
	return &RoleHandler{svc: svc}, nil
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body services.CreateRoleInput
	if !bindAndValidate(c, &body) {
		return
	}
	role, err := h.svc.CreateRole(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body services.UpdateRoleInput
	if !bindAndValidate(c, &body) {
		return
	}
	role, err := h.svc.UpdateRole(requestContext(c), pathID(c, "id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles/:id/activate
func (h *RoleHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// POST /api/roles/:id/deactivate
func (h *RoleHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// PUT /api/roles/:id/permissions/:permissionID
func (h *RoleHandler) AssignPermission(c *gin.Context) {
	if err := h.svc.AssignRolePermission(requestContext(c), pathID(c, "id"), pathID(c, "permissionID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// DELETE /api/roles/:id/permissions/:permissionID
func (h *RoleHandler) RemovePermission(c *gin.Context) {
	if err := h.svc.RemoveRolePermission(requestContext(c), pathID(c, "id"), pathID(c, "permissionID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

func (h *RoleHandler) setActive(c *gin.Context, active bool) {
	if err := h.svc.SetRoleActive(requestContext(c), pathID(c, "id"), active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_active": active})
}
