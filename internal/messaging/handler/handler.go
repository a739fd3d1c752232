// Package handler exposes template administration over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"leadbook/internal/messaging/repository"
	"leadbook/internal/messaging/transport"
	"leadbook/platform/httpkit"
	"leadbook/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	repo *repository.Repository
	val  *validator.Validator
}

func New(repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// RegisterAdminRoutes mounts template administration on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	templates := rg.Group("/templates")
	templates.GET("", h.List)
	templates.POST("", h.Create)
	templates.PATCH("/:id/active", h.SetActive)
}

func (h *Handler) List(c *gin.Context) {
	templates, err := h.repo.List(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list templates", nil)
		return
	}
	httpkit.OK(c, templates)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.EmailBody == "" && req.SMSBody == "" {
		httpkit.Error(c, http.StatusBadRequest, "a template needs an email or sms body", nil)
		return
	}

	tmpl := &repository.Template{
		ID:           uuid.New(),
		Name:         req.Name,
		Type:         req.Type,
		EmailSubject: req.EmailSubject,
		EmailBody:    req.EmailBody,
		SMSBody:      req.SMSBody,
		Active:       req.Active,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.repo.Create(c.Request.Context(), tmpl); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to create template", nil)
		return
	}
	httpkit.JSON(c, http.StatusCreated, tmpl)
}

func (h *Handler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.repo.SetActive(c.Request.Context(), id, req.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "template not found", nil)
			return
		}
		httpkit.Error(c, http.StatusInternalServerError, "failed to update template", nil)
		return
	}
	httpkit.OK(c, gin.H{"active": req.Active})
}
