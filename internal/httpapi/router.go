package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

// Handlers bundles every route group's handler so router construction stays
// a single explicit wiring step.
type Handlers struct {
	Documents   *DocumentsHandler
	Chat        *ChatHandler
	Generate    *GenerateHandler
	Competitive *CompetitiveHandler
}

// New assembles the gin engine: middleware chain, then one route per §6
// endpoint, each a thin adapter over its handler.
func New(cfg *config.Config, log *logger.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(recoverMiddleware(log))
	router.Use(accessLogMiddleware(log))
	router.Use(otelgin.Middleware("studyforge"))
	router.Use(maxRequestBytes(cfg.HTTP.MaxRequestBytes))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	registerHealth(router)

	router.POST("/upload", h.Documents.Upload)
	router.GET("/documents/list", h.Documents.List)

	router.POST("/chat", h.Chat.Answer)

	router.POST("/quiz", h.Generate.Quiz)
	router.POST("/quiz/evaluate-answer", h.Generate.EvaluateAnswer)
	router.POST("/summary", h.Generate.Summary)
	router.POST("/flashcards", h.Generate.Flashcards)

	router.POST("/competitive-quiz/generate-bank", h.Competitive.GenerateBank)
	router.POST("/competitive-quiz/start", h.Competitive.Start)
	router.POST("/competitive-quiz/answer", h.Competitive.Answer)

	return router
}
