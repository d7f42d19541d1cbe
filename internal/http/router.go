package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"account-lifecycle/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas de cuentas.
func NewRouter(logger *zap.Logger, userH *UserHandler, jwtSvc *service.JWTService) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	users := r.Group("/users")
	users.POST("", userH.Register)
	users.POST("/login", userH.Login)
	users.POST("/verify_email", userH.ResendVerification)
	users.GET("/verify_email/:code", userH.VerifyEmail)
	users.POST("/reset_password", userH.RequestPasswordReset)
	users.POST("/reset_password/:code", userH.ConfirmPasswordReset)
	users.GET("/me", JWTAuthMiddleware(jwtSvc), userH.Me)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
// Se registra la ruta registrada y no la URL, que puede llevar un código.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
