package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freshapi/freshapi/internal/services"
	"github.com/freshapi/freshapi/pkg/response"
)

type ResourceHandler struct {
	svc *services.AccessService
}

type createResourcePermissionRequest struct {
	Action      string `json:"action" validate:"required,identifier"`
	Description string `json:"description" validate:"max=255"`
}

func NewResourceHandler(svc *services.AccessService) (*ResourceHandler, error) {
	if svc == nil {
		return nil, errors.New("resource handler: access service is required")
	}
	return &ResourceHandler{svc: svc}, nil
}

// GET /api/resources
func (h *ResourceHandler) List(c *gin.Context) {
	resources, err := h.svc.ListResources(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, resources)
}

// POST /api/resources
func (h *ResourceHandler) Create(c *gin.Context) {
	var body services.CreateResourceInput
	if !bindAndValidate(c, &body) {
		return
	}
	resource, err := h.svc.CreateResource(requestContext(c), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resource)
}

// POST /api/resources/:name/permissions
func (h *ResourceHandler) CreatePermission(c *gin.Context) {
	var body createResourcePermissionRequest
	if !bindAndValidate(c, &body) {
		return
	}
	perm, err := h.svc.CreatePermission(requestContext(c), services.CreatePermissionInput{
		Resource:    pathID(c, "name"),
		Action:      body.Action,
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}
