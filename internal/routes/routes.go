// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/database"
	"terminal-bridge/internal/handler"
	"terminal-bridge/internal/middleware"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/utils"
)

// ChannelPath is where the method channel is served
const ChannelPath = "/ws/channel"

// Router holds all dependencies for routing
type Router struct {
	config      *config.Config
	logger      *zap.Logger
	db          *database.DB
	bridge      handler.Bridge
	journal     repository.CommandRepository
	connections *handler.ConnectionManager
	wsHandler   *handler.WebSocketHandler
}

// NewRouter creates a new router instance. db may be nil.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	bridge handler.Bridge,
	journal repository.CommandRepository,
	connections *handler.ConnectionManager,
) *Router {
	return &Router{
		config:      config,
		logger:      logger,
		db:          db,
		bridge:      bridge,
		journal:     journal,
		connections: connections,
		wsHandler:   handler.NewWebSocketHandler(connections, bridge, &config.Security, logger),
	}
}

// WebSocketHandler returns the channel handler so it can be shut down
func (r *Router) WebSocketHandler() *handler.WebSocketHandler {
	return r.wsHandler
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.bridge, r.connections, r.config, r.logger)
	commandHandler := handler.NewCommandHandler(r.bridge, r.journal, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addCommandRoutes(apiV1, commandHandler)

	router.GET(ChannelPath, r.wsHandler.HandleChannel)

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/health/db", handler.DatabaseHealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addCommandRoutes sets up command, journal and reader routes
func (r *Router) addCommandRoutes(api *gin.RouterGroup, handler *handler.CommandHandler) {
	commands := api.Group("/commands")
	{
		commands.POST("/:method", handler.ExecuteCommand)
		commands.GET("", handler.ListCommands)
		commands.GET("/:id", handler.GetCommand)
	}

	api.GET("/methods", handler.ListMethods)
	api.GET("/readers", handler.ListReaders)
	api.GET("/status", handler.GetStatus)
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
