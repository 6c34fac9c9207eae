package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/auth"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; metadata is the only large field
const maxBodyBytes = 1 << 20

// optionalInt parses an integer query parameter. Absent returns nil.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.NewValidationErrorf("%s must be an integer", name).WithCode("INVALID_" + strings.ToUpper(name))
	}
	return &v, nil
}

// callerField names the authenticated caller in audit logs. Unauthenticated
// deployments log "anonymous".
func callerField(r *http.Request) zap.Field {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return zap.String("userID", "anonymous")
	}
	return zap.String("userID", user.UserID)
}
