package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/ottgen/internal/api/handler"
	"github.com/timmy/ottgen/internal/api/middleware"
	"github.com/timmy/ottgen/internal/config"
	"github.com/timmy/ottgen/internal/repository"
)

// RouterDeps bundles what the router wires into handlers.
type RouterDeps struct {
	Store      *repository.CandidateStore
	Pipeline   handler.Pipeline
	Server     config.ServerConfig
	// DailyLimit is reported by the stats endpoint.
	DailyLimit int
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	switch deps.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.Server.CORS.AllowedOrigins,
		AllowAllOrigins: deps.Server.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(deps.Store.Ping)
	candidateHandler := handler.NewCandidateHandler(deps.Store, deps.DailyLimit)
	adminHandler := handler.NewAdminHandler(deps.Pipeline)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/candidates", candidateHandler.ListCandidates)
		v1.GET("/candidates/:id", candidateHandler.GetCandidate)
		v1.GET("/stats", candidateHandler.Stats)

		admin := v1.Group("/admin", middleware.AdminToken(deps.Server.AdminToken))
		{
			admin.GET("/jobs", adminHandler.JobStatuses)
			admin.POST("/parse", adminHandler.Parse)
			admin.POST("/generate-batch", adminHandler.GenerateBatch)
			admin.POST("/candidates/:id/generate", adminHandler.GenerateOne)
			admin.POST("/candidates/:id/reset", adminHandler.Reset)
			admin.POST("/candidates/:id/enrich", adminHandler.Enrich)
			admin.DELETE("/candidates/:id", adminHandler.Delete)
		}
	}

	return r
}
