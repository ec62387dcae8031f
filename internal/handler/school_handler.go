package handler

import (
	"net/http"

	"schoolhub/internal/middleware"
	"schoolhub/internal/model"
	"schoolhub/internal/service"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type SchoolHandler struct {
	schoolService service.SchoolService
}

func NewSchoolHandler(schoolService service.SchoolService) *SchoolHandler {
	return &SchoolHandler{schoolService: schoolService}
}

func (h *SchoolHandler) RegisterRoutes(router *gin.RouterGroup) {
	schools := router.Group("/api/schools")
	{
		schools.GET("", middleware.RequireAuth(), h.ListSchools)
		schools.GET("/:id", middleware.RequireAuth(), h.GetSchool)
		schools.POST("", middleware.RequireRole(model.RoleGroupAdmin), h.CreateSchool)
		schools.PUT("/:id", middleware.RequireRole(model.RoleGroupAdmin), h.UpdateSchool)
	}
	groups := router.Group("/api/school-groups")
	{
		groups.GET("", middleware.RequireAuth(), h.ListGroups)
		groups.POST("", middleware.RequireRole(model.RoleGroupAdmin), h.CreateGroup)
	}
}

// ListSchools returns the school directory
// @Summary      List schools
// @Tags         schools
// @Produce      json
// @Security     BearerAuth
// @Param        group_id  query     string  false  "Filter by school group"
// @Success      200       {object}  response.Response
// @Router       /api/schools [get]
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	schools, err := h.schoolService.ListSchools(c.Request.Context(), c.Query("group_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, schools))
}

// GetSchool returns one school
// @Summary      Get school by id
// @Tags         schools
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "School ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/schools/{id} [get]
func (h *SchoolHandler) GetSchool(c *gin.Context) {
	school, err := h.schoolService.GetSchool(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, school))
}

// CreateSchool registers a new school in a group
// @Summary      Create school
// @Tags         schools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSchoolRequest  true  "School payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/schools [post]
func (h *SchoolHandler) CreateSchool(c *gin.Context) {
	var req service.CreateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	school, err := h.schoolService.CreateSchool(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, school))
}

// UpdateSchool modifies school directory data
// @Summary      Update school
// @Tags         schools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "School ID"
// @Param        payload  body      service.UpdateSchoolRequest  true  "Update payload"
// @Success      200      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/schools/{id} [put]
func (h *SchoolHandler) UpdateSchool(c *gin.Context) {
	var req service.UpdateSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	school, err := h.schoolService.UpdateSchool(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, school))
}

// ListGroups returns all school groups
// @Summary      List school groups
// @Tags         schools
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/school-groups [get]
func (h *SchoolHandler) ListGroups(c *gin.Context) {
	groups, err := h.schoolService.ListGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// CreateGroup registers a new school group
// @Summary      Create school group
// @Tags         schools
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSchoolGroupRequest  true  "Group payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /api/school-groups [post]
func (h *SchoolHandler) CreateGroup(c *gin.Context) {
	var req service.CreateSchoolGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	group, err := h.schoolService.CreateGroup(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, group))
}
