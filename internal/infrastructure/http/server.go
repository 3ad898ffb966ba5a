package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/agendasalud/payment-service/internal/adapter/handler/http"
	"github.com/agendasalud/payment-service/internal/config"
	"github.com/agendasalud/payment-service/internal/domain/repository"
	"github.com/agendasalud/payment-service/internal/middleware/auth"
	"github.com/agendasalud/payment-service/internal/usecase"
)

// Services holds the usecase instances the HTTP layer exposes
type Services struct {
	Webhooks      *usecase.WebhookService
	Subscriptions *usecase.SubscriptionService
	Deposits      *usecase.DepositService
	Professionals repository.ProfessionalRepository
	Plans         repository.PlanRepository
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services *Services
}

// requestValidator adapts validator/v10 to echo's Validator interface
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(cfg *config.Config, logger *zap.Logger, services *Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.FrontendURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhooks, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Subscriptions, s.services.Professionals, s.logger)
	plansHandler := handlers.NewPlansHandler(s.services.Plans, s.logger)
	depositHandler := handlers.NewDepositHandler(s.services.Deposits, s.logger)

	// Webhook endpoint - MercadoPago calls this unauthenticated
	s.echo.POST("/webhook/mercadopago", webhookHandler.HandleWebhook)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
	}

	api := s.echo.Group("/api")

	// Public routes (no authentication required)
	api.GET("/plans", plansHandler.GetPlans)
	api.POST("/deposits", depositHandler.CreateDepositPreference)

	// Protected routes (require JWT authentication)
	protected := api.Group("", auth.JWTMiddleware(jwtConfig))

	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("/me", subscriptionHandler.GetSubscription)
	subscriptions.DELETE("/me", subscriptionHandler.CancelSubscription)
	subscriptions.POST("/me/change-plan", subscriptionHandler.ChangePlan)
}
