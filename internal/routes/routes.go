// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"sqm-service/internal/config"
	"sqm-service/internal/handler"
	"sqm-service/internal/middleware"
	"sqm-service/internal/service"
	"sqm-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config        *config.Config
	logger        *zap.Logger
	sensorService *service.SensorService
	wsHandler     *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, sensorService *service.SensorService) *Router {
	return &Router{
		config:        config,
		logger:        logger,
		sensorService: sensorService,
		wsHandler:     handler.NewWebSocketHandler(sensorService, &config.Server, logger),
	}
}

// WebSocketHandler returns the streaming handler; its Run loop must be
// started by the caller
func (r *Router) WebSocketHandler() *handler.WebSocketHandler {
	return r.wsHandler
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
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
	router.Use(middleware.LoggingMiddleware(serviceLogger, "/live", "/ready"))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.sensorService, r.config, r.logger)
	sensorHandler := handler.NewSensorHandler(r.sensorService, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addSensorRoutes(apiV1, sensorHandler)

	r.addWebSocketRoutes(router, r.wsHandler)
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addSensorRoutes sets up sensor routes
func (r *Router) addSensorRoutes(api *gin.RouterGroup, handler *handler.SensorHandler) {
	sensor := api.Group("/sensor")
	{
		sensor.POST("/connect", handler.ConnectSensor)
		sensor.POST("/commands", handler.SendCommand)
		sensor.POST("/send", handler.SendRaw)
		sensor.POST("/reset", handler.ResetSensor)
		sensor.POST("/clear", handler.ClearBuffer)
		sensor.GET("/readings", handler.GetReadings)
		sensor.GET("/status", handler.GetStatus)
		sensor.GET("/ports", handler.ListPorts)

		listen := sensor.Group("/listen")
		{
			listen.POST("/start", handler.StartListening)
			listen.POST("/stop", handler.StopListening)
		}
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/readings", handler.HandleReadingsConnection)
		ws.GET("/events", handler.HandleEventConnection)
		ws.GET("/stats", handler.GetConnectionStats)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
