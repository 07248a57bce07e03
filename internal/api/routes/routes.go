package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "task-service/docs"
	"task-service/internal/api/handlers"
	"task-service/internal/api/middleware"
	"task-service/internal/websocket"
)

// Dependencies are the collaborators the HTTP surface is built from
type Dependencies struct {
	Hub        *websocket.Hub
	Dispatcher *websocket.Dispatcher
	Metrics    *websocket.BroadcastMetrics
	Auth       middleware.TokenResolver
	Tasks      websocket.TaskManager
	Users      handlers.UserFinder
	Presence   handlers.PresenceChecker

	// PresenceStats and Limiter may be nil when redis is disabled. A nil
	// Limiter disables rate limiting.
	PresenceStats handlers.PresenceStats
	Limiter       middleware.RateLimiter

	AllowedOrigins []string
	AuthTimeout    time.Duration
	SendBufferSize int
}

type Router struct {
	engine       *gin.Engine
	wsHandler    *handlers.WSHandler
	taskHandler  *handlers.TaskHandler
	userHandler  *handlers.UserHandler
	statsHandler *handlers.StatsHandler
	rateLimitMW  *middleware.RateLimitMiddleware
	authMW       *middleware.AuthMiddleware
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())

	return &Router{
		engine: engine,
		wsHandler: handlers.NewWSHandler(deps.Hub, deps.Auth, deps.Tasks, handlers.WSOptions{
			AllowedOrigins: deps.AllowedOrigins,
			AuthTimeout:    deps.AuthTimeout,
			SendBufferSize: deps.SendBufferSize,
		}),
		taskHandler:  handlers.NewTaskHandler(deps.Tasks),
		userHandler:  handlers.NewUserHandler(deps.Users, deps.Presence),
		statsHandler: handlers.NewStatsHandler(deps.Hub, deps.Dispatcher, deps.Metrics, deps.PresenceStats),
		rateLimitMW:  middleware.NewRateLimitMiddleware(deps.Limiter),
		authMW:       middleware.NewAuthMiddleware(deps.Auth),
	}
}

func (r *Router) SetupRoutes() {
	// Swagger documentation
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// The session authenticates itself, from the handshake or the first message
	api.GET("/ws",
		r.rateLimitMW.RateLimitIP(30, time.Minute), // 30 connections per minute per IP
		r.wsHandler.HandleWebSocket,
	)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		tasks := auth.Group("/tasks")
		tasks.Use(r.rateLimitMW.RateLimit(120, time.Minute)) // 120 requests per minute
		{
			tasks.GET("", r.taskHandler.GetTasks)
			tasks.POST("", r.taskHandler.CreateTask)
			tasks.PUT("/:id", r.taskHandler.UpdateTask)
			tasks.DELETE("/:id", r.taskHandler.DeleteTask)
		}

		auth.GET("/users/me", r.userHandler.GetMe)
		auth.GET("/ws/stats", r.statsHandler.GetStats)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
