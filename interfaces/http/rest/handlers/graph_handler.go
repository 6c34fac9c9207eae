package handlers

import (
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/common"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"go.uber.org/zap"
)

// GraphHandler serves graph extraction
type GraphHandler struct {
	service *services.LinkService
	errors  *apperrors.ErrorHandler
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service *services.LinkService, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{service: service, errors: errorHandler, logger: logger}
}

// GetGraph handles GET /graph?entityType=&entityId=&maxDepth=
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	maxDepth, err := optionalInt(r, "maxDepth")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	q := r.URL.Query()
	graph, err := h.service.GetLinkGraph(r.Context(), services.GraphQuery{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		MaxDepth:   maxDepth,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, graph)
}
