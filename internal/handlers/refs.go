package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/models"
	appErrors "dealdesk/pkg/errors"
	"dealdesk/pkg/response"
)

// parseKind maps the URL token to an opportunity kind. Both the enum values
// and the kebab-case URL forms are accepted.
func parseKind(raw string) (models.OpportunityKind, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")) {
	case string(models.KindMna):
		return models.KindMna, true
	case string(models.KindRealEstate):
		return models.KindRealEstate, true
	default:
		return "", false
	}
}

// opportunityRefFromPath resolves the :kind/:id pair of a route. On failure a
// 400 is written and ok is false.
func opportunityRefFromPath(c *gin.Context) (models.OpportunityRef, bool) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.NewBadRequest("opportunity kind must be mna or real-estate"))
		return models.OpportunityRef{}, false
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.NewBadRequest("opportunity id is required"))
		return models.OpportunityRef{}, false
	}

	return models.OpportunityRef{Kind: kind, ID: id}, true
}
