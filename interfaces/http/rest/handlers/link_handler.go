package handlers

import (
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/services"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/common"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LinkHandler handles link-related HTTP requests
type LinkHandler struct {
	service *services.LinkService
	errors  *apperrors.ErrorHandler
	logger  *zap.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(service *services.LinkService, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{service: service, errors: errorHandler, logger: logger}
}

// CreateLinkRequest represents the request body for creating a link
type CreateLinkRequest struct {
	SourceType string  `json:"sourceType" validate:"required"`
	SourceID   string  `json:"sourceId" validate:"required"`
	TargetType string  `json:"targetType" validate:"required"`
	TargetID   string  `json:"targetId" validate:"required"`
	Metadata   *string `json:"metadata,omitempty" validate:"omitempty,max=65536"`
}

func (req CreateLinkRequest) toInput() entities.LinkInput {
	return entities.LinkInput{
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Metadata:   req.Metadata,
	}
}

func (h *LinkHandler) decodeCreate(w http.ResponseWriter, r *http.Request) (entities.LinkInput, bool) {
	var req CreateLinkRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return entities.LinkInput{}, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return entities.LinkInput{}, false
	}
	return req.toInput(), true
}

// CreateLink handles POST /links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	link, err := h.service.CreateLink(r.Context(), input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusCreated, link)
}

// CreateBidirectionalLink handles POST /links/bidirectional
func (h *LinkHandler) CreateBidirectionalLink(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	pair, err := h.service.CreateBidirectionalLink(r.Context(), input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusCreated, pair)
}

// ListLinks handles GET /links
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := services.ParseLinkFilter(services.LinkFilterInput{
		SourceType: q.Get("sourceType"),
		SourceID:   q.Get("sourceId"),
		TargetType: q.Get("targetType"),
		TargetID:   q.Get("targetId"),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	params := common.ExtractPaginationParams(r)
	result, err := h.service.ListLinks(r.Context(), filter, params.Page, params.PageSize)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, result)
}

// SearchLinks handles GET /links/search?q=&limit=
func (h *LinkHandler) SearchLinks(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r, "limit")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	links, err := h.service.SearchLinks(r.Context(), r.URL.Query().Get("q"), n)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"links": links,
		"count": len(links),
	})
}

// GetLink handles GET /links/{linkID}
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	link, err := h.service.GetLink(r.Context(), linkID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if link == nil {
		h.errors.Handle(w, r, apperrors.NewNotFoundError("link").WithDetails(map[string]interface{}{"id": linkID}))
		return
	}

	_ = common.RespondJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /links/{linkID}
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := h.linkID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLink(r.Context(), linkID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Link deleted by request", zap.String("linkID", linkID), callerField(r))
	common.RespondNoContent(w)
}

func (h *LinkHandler) linkID(w http.ResponseWriter, r *http.Request) (string, bool) {
	linkID := chi.URLParam(r, "linkID")
	if _, err := uuid.Parse(linkID); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid link ID format").WithCode("INVALID_LINK_ID"))
		return "", false
	}
	return linkID, true
}
