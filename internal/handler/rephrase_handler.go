package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
	"rephrase-server/internal/service"
	"rephrase-server/pkg/middleware"
)

// RephraseHandler обрабатывает HTTP запросы сервиса перефразирования.
type RephraseHandler struct {
	service service.RephraseService
	logger  *zap.Logger
}

func NewRephraseHandler(s service.RephraseService, logger *zap.Logger) *RephraseHandler {
	return &RephraseHandler{
		service: s,
		logger:  logger.Named("RephraseHandler"),
	}
}

// rephrase - POST /rephrase.
func (h *RephraseHandler) rephrase(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.logger.Error("User ID missing in context after auth middleware")
		respond(c, http.StatusInternalServerError, model.MsgInternalServerError)
		return
	}

	var req model.RephraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid rephrase request body", zap.String("userID", userID.String()), zap.Error(err))
		respond(c, http.StatusBadRequest, model.ErrorReasonResponse{
			Reason: model.MsgInvalidRequestBody,
			Issues: validationIssues(err),
		})
		return
	}

	result, err := h.service.Rephrase(c.Request.Context(), userID, req)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	switch result.Kind {
	case model.ResultRephrased:
		respond(c, http.StatusCreated, model.RephraseResponse{Rephrased: result.Rephrased})
	case model.ResultReplayed:
		respond(c, http.StatusOK, model.RephraseResponse{Rephrased: result.Rephrased})
	case model.ResultRejectedByGenerator:
		respond(c, http.StatusUnprocessableEntity, model.ErrorReasonResponse{Reason: result.Reason})
	case model.ResultGenerationFailed:
		respond(c, http.StatusInternalServerError, model.MsgInternalServerError)
	default:
		h.logger.Error("Unknown rephrase result kind", zap.Int("kind", int(result.Kind)))
		respond(c, http.StatusInternalServerError, model.MsgInternalServerError)
	}
}

// listStyles - GET /styles, включённые стили без prompt.
func (h *RephraseHandler) listStyles(c *gin.Context) {
	styles, err := h.service.ListStyles(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	if styles == nil {
		styles = []model.Style{}
	}
	respond(c, http.StatusOK, styles)
}

func preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func respond(c *gin.Context, status int, body interface{}) {
	c.AbortWithStatusJSON(status, body)
}
