package handler

import (
	"errors"
	"net/http"

	"schoolhub/internal/middleware"
	"schoolhub/internal/model"
	"schoolhub/internal/service"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.GET("", middleware.RequireAuth(), h.ListRequests)
		requests.GET("/:id", middleware.RequireAuth(), h.GetRequest)
		requests.POST("", middleware.RequireAuth(), h.CreateRequest)
		requests.PUT("/:id", middleware.RequireAuth(), h.UpdateRequest)
		requests.DELETE("/:id", middleware.RequireAuth(), h.DeleteRequest)
		requests.PUT("/:id/approve", middleware.RequireRole(model.RoleGroupAdmin, model.RoleSchoolAdmin), h.ApproveRequest)
		requests.PUT("/:id/reject", middleware.RequireRole(model.RoleGroupAdmin, model.RoleSchoolAdmin), h.RejectRequest)
		requests.PUT("/:id/complete", middleware.RequireRole(model.RoleGroupAdmin, model.RoleSchoolAdmin), h.CompleteRequest)
	}
}

// statusFor maps the lifecycle error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidReference):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRemoteFailure), errors.Is(err, service.ErrPartialWrite):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ListRequests returns the requests visible to the current user
// @Summary      List resource requests
// @Description  Lists the requests visible under the caller's scope, optionally filtered by status
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status   query     string  false  "Filter by status (pending|approved|rejected|completed)"
// @Param        refresh  query     bool    false  "Reload from the database before listing"
// @Success      200     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Unknown status filter: "+status))
		return
	}

	if c.Query("refresh") == "true" {
		if err := h.requestService.Load(c.Request.Context()); err != nil {
			code := statusFor(err)
			c.JSON(code, response.Error(code, err.Error()))
			return
		}
	}

	requests, err := h.requestService.List(c.Request.Context(), status)
	if err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// GetRequest returns one request with its items
// @Summary      Get a resource request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// CreateRequest submits a new procurement request with its items
// @Summary      Create a resource request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RequestDraft  true  "Request draft"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var draft service.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Create(c.Request.Context(), draft)
	if err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, req))
}

// UpdateRequest replaces the request fields and item set
// @Summary      Update a resource request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Request ID"
// @Param        payload  body      service.RequestDraft  true  "Request draft"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var draft service.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.requestService.Update(c.Request.Context(), c.Param("id"), draft); err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": true}))
}

// DeleteRequest removes a request and its items
// @Summary      Delete a resource request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// ApproveRequest approves a pending request
// @Summary      Approve a resource request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	if err := h.requestService.Approve(c.Request.Context(), c.Param("id")); err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"status": model.RequestStatusApproved}))
}

type rejectPayload struct {
	Note string `json:"note"`
}

// RejectRequest rejects a pending request
// @Summary      Reject a resource request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Request ID"
// @Param        payload  body      rejectPayload  false  "Optional rejection note"
// @Success      200      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var payload rejectPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		// Allow empty body — note is optional
		payload.Note = ""
	}

	if err := h.requestService.Reject(c.Request.Context(), c.Param("id"), payload.Note); err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"status": model.RequestStatusRejected}))
}

// CompleteRequest marks an approved request as completed
// @Summary      Complete a resource request
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/complete [put]
func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	if err := h.requestService.Complete(c.Request.Context(), c.Param("id")); err != nil {
		code := statusFor(err)
		c.JSON(code, response.Error(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"status": model.RequestStatusCompleted}))
}
