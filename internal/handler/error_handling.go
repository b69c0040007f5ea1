package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
)

func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, model.ErrInsufficientFunds):
		respond(c, http.StatusPaymentRequired, model.MsgBalanceTooLow)
	case errors.Is(err, model.ErrStyleNotFound):
		respond(c, http.StatusNotFound, model.MsgStyleNotFound)
	case errors.Is(err, model.ErrUserNotFound):
		logger.Error("Authenticated user has no data", zap.Error(err))
		respond(c, http.StatusInternalServerError, model.MsgUserDataInconsistency)
	case errors.Is(err, model.ErrInvalidInput):
		respond(c, http.StatusBadRequest, model.ErrorReasonResponse{Reason: model.MsgInvalidRequestBody})
	default:
		logger.Error("Unhandled internal error in handleServiceError", zap.Error(err))
		respond(c, http.StatusInternalServerError, model.MsgInternalServerError)
	}
}
