package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"rephrase-server/internal/model"
	"rephrase-server/pkg/middleware"
)

// Пути, по которым доступен сценарий перефразирования.
const (
	RephrasePath         = "/rephrase"
	RephraseFunctionPath = "/functions/v1/rephrase"
	StylesPath           = "/styles"
)

// NewRouter собирает gin движок: логирование, восстановление после паники, CORS,
// метрики и маршруты API.
func NewRouter(h *RephraseHandler, verifier middleware.TokenVerifier, logger *zap.Logger) *gin.Engine {
	setupValidation()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.GinZapLogger(logger, "/health", "/metrics"))
	router.Use(countResponses("/health", "/metrics"))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		respond(c, http.StatusInternalServerError, model.MsgUnexpectedError)
	}))
	router.Use(corsHeaders, cors.New(corsConfig()))

	p := ginprometheus.NewPrometheus("gin")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		if path := c.FullPath(); path != "" {
			return path
		}
		return "unmatched"
	}
	// Регистрирует middleware и GET /metrics.
	p.Use(router)

	router.NoMethod(func(c *gin.Context) {
		respond(c, http.StatusMethodNotAllowed, model.MsgMethodNotAllowed)
	})

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	auth := middleware.AuthMiddleware(verifier, logger, model.MsgUnauthorized)
	for _, path := range []string{RephrasePath, RephraseFunctionPath} {
		router.OPTIONS(path, preflight)
		router.POST(path, auth, h.rephrase)
	}
	router.OPTIONS(StylesPath, preflight)
	router.GET(StylesPath, auth, h.listStyles)

	return router
}

var (
	corsAllowMethods = []string{http.MethodPost, http.MethodGet, http.MethodOptions}
	corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
)

// corsHeaders ставит разрешающие заголовки на любой ответ.
// cors.New пропускает запросы без Origin, не трогая заголовки.
func corsHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(corsAllowHeaders, ", "))
	c.Next()
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = corsAllowMethods
	cfg.AllowHeaders = corsAllowHeaders
	cfg.MaxAge = 86400 * time.Second
	return cfg
}
