package handlers

import (
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/common"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EntityHandler serves the link views of a single entity
type EntityHandler struct {
	service *services.LinkService
	errors  *apperrors.ErrorHandler
	logger  *zap.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(service *services.LinkService, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{service: service, errors: errorHandler, logger: logger}
}

func entityParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID")
}

// GetBacklinks handles GET /entities/{entityType}/{entityID}/backlinks
func (h *EntityHandler) GetBacklinks(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)

	links, err := h.service.GetBacklinks(r.Context(), entityType, entityID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, map[string]interface{}{"links": links, "count": len(links)})
}

// GetOutgoing handles GET /entities/{entityType}/{entityID}/outgoing
func (h *EntityHandler) GetOutgoing(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)

	links, err := h.service.GetOutgoing(r.Context(), entityType, entityID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, map[string]interface{}{"links": links, "count": len(links)})
}

// GetConnections handles GET /entities/{entityType}/{entityID}/connections
func (h *EntityHandler) GetConnections(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)

	result, err := h.service.GetEntityConnections(r.Context(), entityType, entityID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, result)
}

// DeleteLinks handles DELETE /entities/{entityType}/{entityID}/links
func (h *EntityHandler) DeleteLinks(w http.ResponseWriter, r *http.Request) {
	entityType, entityID := entityParams(r)

	removed, err := h.service.DeleteLinksForEntity(r.Context(), entityType, entityID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Removed entity links",
		zap.String("entityType", entityType),
		zap.String("entityID", entityID),
		zap.Int("removed", removed),
		callerField(r))
	_ = common.RespondJSON(w, http.StatusOK, map[string]int{"deleted": removed})
}
