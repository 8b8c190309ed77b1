// Package api is the HTTP surface of the question answering service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps wires the router.
type Deps struct {
	Answerer        Answerer
	Ingest          IngestService
	Index           IndexInfo
	EmbedModel      string
	ChatModel       string
	DefaultMaxPages int
	AllowedOrigins  []string
	GinMode         string
	MCP             http.Handler // Optional, mounted at /mcp
	Logger          *slog.Logger
}

// NewRouter builds the gin engine with recovery, correlation ids, request logging and CORS.
func NewRouter(deps Deps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery(), CorrelationID(), RequestLogger(deps.Logger))

	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", CorrelationHeader, "Mcp-Session-Id", "Mcp-Protocol-Version", "Last-Event-ID"},
			ExposeHeaders:    []string{CorrelationHeader, "Mcp-Session-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := &Handler{
		answerer:        deps.Answerer,
		ingest:          deps.Ingest,
		index:           deps.Index,
		embedModel:      deps.EmbedModel,
		chatModel:       deps.ChatModel,
		defaultMaxPages: deps.DefaultMaxPages,
		logger:          deps.Logger,
	}

	landing, err := renderLanding()
	if err != nil {
		deps.Logger.Warn("Failed to render landing page", "error", err)
	}

	router.GET("/", newRootHandler(landing))
	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", landing)
	})
	router.GET("/health", h.Health)
	router.POST("/ask", h.Ask)
	router.POST("/ingest/start", h.StartIngest)
	router.GET("/ingest/status", h.IngestStatus)

	if deps.MCP != nil {
		router.Any("/mcp", gin.WrapH(deps.MCP))
	}

	return router
}
