package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/class-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	classHttp "github.com/nekogravitycat/class-booking-backend/internal/class/http"
	"github.com/nekogravitycat/class-booking-backend/internal/metrics"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/class-booking-backend/internal/ratelimit"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/class-booking-backend/internal/user/http"
)

// Config holds everything the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService    user.Service
	ClassService   class.Service
	BookingService booking.Service

	JWTManager *auth.JWTManager
	Resolver   auth.PrincipalResolver
	// Limiter is optional; without it requests are not rate limited.
	Limiter *ratelimit.Limiter
	// Pinger backs /healthz. It may be nil.
	Pinger Pinger
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	request.RegisterValidators()

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	// - Metrics: Observes latency per route.
	r.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg)
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Operational endpoints
	r.GET("/healthz", healthHandler(cfg.Pinger))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := auth.AuthRequired(cfg.Resolver)
	authOptional := auth.AuthOptional(cfg.Resolver)

	loginLimit, bookingLimit := ratelimit.Passthrough(), ratelimit.Passthrough()
	if cfg.Limiter != nil {
		loginLimit = cfg.Limiter.Middleware("auth")
		bookingLimit = cfg.Limiter.Middleware("booking")
	}

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService, cfg.JWTManager)
	classHandler := classHttp.NewHandler(cfg.ClassService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	overview := NewOverviewHandler(cfg.ClassService, cfg.BookingService, cfg.UserService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		v1.GET("/overview", authOptional, overview.Get)
		userHttp.RegisterRoutes(v1, userHandler, authRequired, loginLimit)
		classHttp.RegisterRoutes(v1, classHandler, authRequired)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authRequired, bookingLimit)
	}

	return r
}

func allowedOrigins(cfg Config) []string {
	if !cfg.IsProduction {
		return []string{
			"http://localhost:3000",
			"http://localhost:8081", // Swagger
		}
	}

	var origins []string
	for _, o := range strings.Split(cfg.ProdOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
