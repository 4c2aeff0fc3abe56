package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hadbitapp/hadbit-server/internal/middleware"
	"github.com/hadbitapp/hadbit-server/internal/services"
	"github.com/hadbitapp/hadbit-server/pkg/errors"
	"github.com/hadbitapp/hadbit-server/pkg/response"
)

// MigrationHandler exposes the legacy data migration endpoints.
type MigrationHandler struct {
	migration *services.MigrationService
}

// NewMigrationHandler constructs a migration handler.
func NewMigrationHandler(migration *services.MigrationService) *MigrationHandler {
	return &MigrationHandler{migration: migration}
}

func ownerIdentity(c *gin.Context) (owner, email string, ok bool) {
	owner = c.GetString(middleware.CtxUserIDKey)
	email = c.GetString(middleware.CtxEmailKey)
	if owner == "" || email == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", "", false
	}
	return owner, email, true
}

// Preview shows what a migration run would copy and destroy.
func (h *MigrationHandler) Preview(c *gin.Context) {
	owner, email, ok := ownerIdentity(c)
	if !ok {
		return
	}

	preview, err := h.migration.Preview(requestContext(c), owner, email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, preview)
}

// Execute runs the migration and returns the final counts.
func (h *MigrationHandler) Execute(c *gin.Context) {
	owner, email, ok := ownerIdentity(c)
	if !ok {
		return
	}

	receipt, err := h.migration.Execute(requestContext(c), owner, email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, receipt)
}
