package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/auth"
	"github.com/freshapi/freshapi/internal/permissions"
	"github.com/freshapi/freshapi/internal/services"
	appErrors "github.com/freshapi/freshapi/pkg/errors"
	"github.com/freshapi/freshapi/pkg/response"
)

type PermissionHandler struct {
	svc *services.AccessService
}

func NewPermissionHandler(svc *services.AccessService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("permission handler: access service is required")
	}
	return &PermissionHandler{svc: svc}, nil
}

// GET /api/permissions/registry
func (h *PermissionHandler) Registry(c *gin.Context) {
	defs := permissions.GetAll()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*permissions.ResourceDef, 0, len(names))
	for _, name := range names {
		out = append(out, defs[name])
	}
	response.Success(c, http.StatusOK, out)
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	ctx := requestContext(c)
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	perms, err := h.svc.ListUserPermissions(ctx, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// POST /api/permissions/:id/activate
func (h *PermissionHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// POST /api/permissions/:id/deactivate
func (h *PermissionHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *PermissionHandler) setActive(c *gin.Context, active bool) {
	if err := h.svc.SetPermissionActive(requestContext(c), pathID(c, "id"), active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_active": active})
}
