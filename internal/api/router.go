package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ru-digital/product-estimator/internal/logging"
)

// RouterConfig carries the router-level settings.
type RouterConfig struct {
	CORSOrigins []string
	ModulesDir  string
	JWTSecret   string
}

// SetupRouter wires middleware and routes.
func SetupRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
	}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	// Optional feature modules requested on demand by the storefront
	if cfg.ModulesDir != "" {
		router.Static("/modules", cfg.ModulesDir)
	}

	router.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/estimator/add", handler.AddToEstimator)
		v1.GET("/estimator/variations/:id", handler.GetVariationEstimator)
		v1.POST("/estimates", handler.SubmitEstimate)

		admin := v1.Group("/admin")
		admin.Use(AuthMiddleware(cfg.JWTSecret), AdminMiddleware())
		{
			admin.GET("/estimates/:id", handler.GetEstimate)
		}
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "estimator-service",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}
