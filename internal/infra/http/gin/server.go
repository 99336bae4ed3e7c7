package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/infra/config"
	"hostelhunt/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Users          UsersHTTP
	Landlords      LandlordsHTTP
	Hostels        HostelsHTTP
	Search         SearchHTTP
	Bookings       BookingsHTTP
	Reviews        ReviewsHTTP
	Payments       PaymentsHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		g := api.Group("/auth")
		g.POST("/register", h.Auth.Register)
		g.POST("/login", h.Auth.Login)
		g.POST("/refresh", h.Auth.Refresh)
		g.POST("/logout", h.Auth.Logout)
		g.GET("/me", h.Auth.Me)
		g.POST("/verify-email", h.Auth.VerifyEmail)
		g.POST("/password-reset", h.Auth.RequestPasswordReset)
		g.POST("/password-reset/confirm", h.Auth.ResetPassword)
	}
	if h.Users != nil {
		g := api.Group("/users/me")
		g.GET("", h.Users.Profile)
		g.PUT("", h.Users.UpdateProfile)
		g.PUT("/password", h.Users.ChangePassword)
		g.GET("/stats", h.Users.Stats)
		g.POST("/deactivate", h.Users.Deactivate)
	}
	if h.Landlords != nil {
		g := api.Group("/landlord")
		g.POST("/profile", h.Landlords.CreateProfile)
		g.PUT("/profile", h.Landlords.UpdateProfile)
		g.GET("/profile", h.Landlords.Profile)
		g.GET("/hostels", h.Landlords.Hostels)
		g.GET("/bookings", h.Landlords.Bookings)
		api.GET("/landlords/:id", h.Landlords.Public)
	}
	if h.Hostels != nil {
		g := api.Group("/hostels")
		g.GET("", h.Hostels.List)
		g.POST("", h.Hostels.Create)
		g.GET("/:id", h.Hostels.Get)
		g.PUT("/:id", h.Hostels.Update)
		g.DELETE("/:id", h.Hostels.Delete)
		g.POST("/:id/images", h.Hostels.UploadImage)
	}
	if h.Search != nil {
		g := api.Group("/search")
		g.GET("/hostels", h.Search.Hostels)
		g.GET("/suggestions", h.Search.Suggestions)
		g.GET("/popular-locations", h.Search.PopularLocations)
		g.GET("/price-ranges", h.Search.PriceRanges)
		g.GET("/filters", h.Search.Filters)
	}
	if h.Bookings != nil {
		g := api.Group("/bookings")
		g.POST("", h.Bookings.Create)
		g.GET("", h.Bookings.List)
		g.GET("/:id", h.Bookings.Get)
		g.POST("/:id/cancel", h.Bookings.Cancel)
		g.PUT("/:id/status", h.Bookings.UpdateStatus)
		g.POST("/:id/refund", h.Bookings.Refund)
	}
	if h.Payments != nil {
		g := api.Group("/payments")
		g.POST("/stk-push", h.Payments.STKPush)
		g.POST("/callback", h.Payments.Callback)
		g.GET("/history", h.Payments.History)
		g.GET("/:id/status", h.Payments.Status)
		api.GET("/bookings/:id/payments", h.Payments.ByBooking)
	}
	if h.Reviews != nil {
		g := api.Group("/reviews")
		g.POST("", h.Reviews.Create)
		g.GET("/user", h.Reviews.Mine)
		g.GET("/hostel/:id", h.Reviews.ByHostel)
		g.GET("/stats/:id", h.Reviews.Stats)
		g.GET("/:id", h.Reviews.Get)
		g.PUT("/:id", h.Reviews.Update)
		g.DELETE("/:id", h.Reviews.Delete)
	}
	if h.Admin != nil {
		g := api.Group("/admin")
		g.GET("/users", h.Admin.ListUsers)
		g.PUT("/users/:id/role", h.Admin.ChangeRole)
		g.PUT("/users/:id/status", h.Admin.SetUserStatus)
		g.PUT("/hostels/:id/verify", h.Admin.VerifyHostel)
		g.PUT("/hostels/:id/feature", h.Admin.FeatureHostel)
		g.GET("/stats", h.Admin.Stats)
		g.DELETE("/reviews/:id", h.Admin.DeleteReview)
		g.PUT("/bookings/:id/status", h.Admin.UpdateBookingStatus)
		g.POST("/notifications/reminders", h.Admin.RunReminders)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
