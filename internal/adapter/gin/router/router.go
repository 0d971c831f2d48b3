package router

import (
	"net/http"

	"mongo-user-service/api/openapi"
	"mongo-user-service/internal/adapter/gin/handler"
	"mongo-user-service/internal/adapter/gin/middleware"
	grpcmiddleware "mongo-user-service/internal/adapter/grpc/middleware"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// OpenAPIPath is where the embedded OpenAPI document is served.
const OpenAPIPath = "/openapi/" + openapi.FileName

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter, log))

	router.GET("/health", healthHandler.Health)

	router.GET(OpenAPIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openapi.Document)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(OpenAPIPath))))

	api := router.Group("/api")
	{
		for _, p := range []string{"", "/"} {
			api.POST(p, userHandler.CreateUser)
			api.GET(p, userHandler.ListUsers)
		}
		api.GET("/:id", userHandler.GetUser)
		api.PUT("/:id", userHandler.UpdateUser)
		api.DELETE("/:id", userHandler.DeleteUser)
	}

	return router
}
