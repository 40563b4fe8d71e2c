package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/class-booking-backend/internal/api"
	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	"github.com/nekogravitycat/class-booking-backend/internal/ratelimit"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	// Redis is optional; nil disables rate limiting.
	Redis           *redis.Client
	RateLimit       int
	RateLimitWindow time.Duration
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router      *gin.Engine
	JWTManager  *auth.JWTManager
	UserService user.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo)

	// Class Module
	classRepo := class.NewPgxRepository(cfg.DBPool)
	classService := class.NewService(classRepo, booking.NewAccountant(bookingRepo))

	var limiter *ratelimit.Limiter
	if cfg.Redis != nil {
		limiter = ratelimit.NewLimiter(cfg.Redis, cfg.RateLimit, cfg.RateLimitWindow)
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		UserService:    userService,
		ClassService:   classService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
		Resolver:       auth.NewJWTResolver(jwtManager, userService),
		Limiter:        limiter,
		Pinger:         cfg.DBPool,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:      router,
		JWTManager:  jwtManager,
		UserService: userService,
	}
}
