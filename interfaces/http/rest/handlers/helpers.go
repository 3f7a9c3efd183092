package handlers

import (
	"net/http"

	"fieldui/pkg/common"
	pkgerrors "fieldui/pkg/errors"

	"go.uber.org/zap"
)

// respondAppError maps application errors onto HTTP status codes
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case pkgerrors.IsNotFound(err):
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case pkgerrors.IsSchemaDecode(err):
		common.RespondError(w, http.StatusUnprocessableEntity, "SCHEMA_DECODE", err.Error())
	case pkgerrors.IsValidation(err):
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case pkgerrors.IsConflict(err):
		common.RespondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case pkgerrors.IsUnauthorized(err):
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
