package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		AbortWithError(c, newValidationError("name", "invalid_name", "name is required"))
		return
	}

	now := time.Now().UTC()
	org := &organizationdomain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgRepo.Insert(c.Request.Context(), s.db, org); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) ListOrganizations(c *gin.Context) {
	orgs, err := s.orgRepo.List(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orgs})
}
