package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/SaadNasir-Drago/Zolo/internal/api/handlers"
	"github.com/SaadNasir-Drago/Zolo/internal/api/middleware"
	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/email"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/metrics"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
	"github.com/SaadNasir-Drago/Zolo/internal/storage"
)

// Dependencies are the services the public API is built on. Hub may be nil,
// in which case /ws is not mounted.
type Dependencies struct {
	Users      services.IUserService
	Properties services.IPropertyService
	Deals      services.IDealService
	Messages   services.IMessageService
	Interests  services.IInterestService
	Storage    storage.IS3Storage
	TaskClient handlers.IAsynqClient
	Hub        *realtime.Hub
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Order matters: CORS must answer preflights before they count against the limiter.
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(metrics.GinMiddleware())
	r.Use(rateLimiter.Limit())

	tokens := middleware.TokenSource{CookieName: cfg.AuthCookieName}
	requireAuth := middleware.AuthMiddleware(cfg.JwtSecret, tokens)
	optionalAuth := middleware.OptionalAuth(cfg.JwtSecret, tokens)

	authHandler := handlers.NewRestAuthHandler(cfg, deps.Users)
	propertyHandler := handlers.NewRestPropertyHandler(deps.Properties)
	dealHandler := handlers.NewRestDealHandler(deps.Deals)
	messageHandler := handlers.NewRestMessageHandler(deps.Messages, deps.Deals)
	interestHandler := handlers.NewRestInterestHandler(cfg, deps.TaskClient, deps.Properties, deps.Users, deps.Interests)
	imageHandler := handlers.NewRestImageHandler(deps.Storage, deps.TaskClient, deps.Properties)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		apiGroup.POST("/auth/register", authHandler.Register)
		apiGroup.POST("/auth/login", authHandler.Login)

		// Properties
		apiGroup.POST("/property", requireAuth, propertyHandler.CreateProperty)
		apiGroup.GET("/property", propertyHandler.ListProperties)
		apiGroup.GET("/properties/search", propertyHandler.SearchProperties)
		apiGroup.GET("/properties/rent", propertyHandler.ListRentProperties)
		apiGroup.GET("/properties/:id", propertyHandler.GetProperty)
		apiGroup.GET("/getProperty/:id", propertyHandler.GetProperty)
		apiGroup.PUT("/updateProperty/:id", propertyHandler.UpdateProperty)
		apiGroup.DELETE("/properties/:id", requireAuth, propertyHandler.DeleteProperty)
		apiGroup.GET("/user-properties", requireAuth, propertyHandler.ListUserProperties)

		images := apiGroup.Group("/property/:id/images", requireAuth)
		images.POST("/upload-url", imageHandler.CreateUploadURL)
		images.POST("", imageHandler.AttachImage)

		// Deals
		apiGroup.POST("/deal", dealHandler.CreateDeal)
		apiGroup.GET("/deals", requireAuth, dealHandler.ListDeals)
		apiGroup.GET("/user-deals", requireAuth, dealHandler.ListUserDeals)
		apiGroup.GET("/dealProperty", dealHandler.GetDealProperty)
		apiGroup.PUT("/acceptDeal", optionalAuth, dealHandler.AcceptDeal)
		apiGroup.PUT("/declineDeal", optionalAuth, dealHandler.DeclineDeal)

		// Messages
		apiGroup.POST("/message", optionalAuth, messageHandler.SendMessage)
		apiGroup.GET("/message", messageHandler.ListMessages)
		apiGroup.POST("/messageAll", messageHandler.BroadcastToBuyers)

		apiGroup.POST("/email", interestHandler.SendInterest)
	}

	if deps.Hub != nil {
		wsTokens := middleware.TokenSource{CookieName: cfg.AuthCookieName, QueryParam: "token"}
		wsHandler := handlers.NewWSHandler(deps.Hub, cfg.AllowedOrigins)
		r.GET("/ws", middleware.OptionalAuth(cfg.JwtSecret, wsTokens), wsHandler.Serve)
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail returns and deletes a mail captured by the Redis sender.
// Arguments are [kind, recipient], e.g. ["property_interest", "seller@example.com"].
func getTestEmail(c *gin.Context, rdb *redis.Client, raw json.RawMessage) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
		return
	}
	key := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// The worker may still be sending, so poll for ~2 seconds.
	var stored string
	var err error
	for i := 0; i < 10; i++ {
		stored, err = rdb.GetDel(ctx, key).Result()
		if err == nil {
			break
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("Service API: error reading %s from Redis: %v", key, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", key)})
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		log.Printf("Service API: error decoding %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
