package api

import (
	"fmt"
	"log"
	"net/http"

	"parterre/internal/cache"
	"parterre/internal/config"
	"parterre/internal/database"
	"parterre/internal/external"
	"parterre/internal/fanout"
	"parterre/internal/handlers"
	"parterre/internal/idempotency"
	"parterre/internal/messaging"
	"parterre/internal/middleware"
	"parterre/internal/models"
	"parterre/internal/repository"
	"parterre/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/stan.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	guard    *idempotency.Guard
	valkey   *cache.ValkeyClient
	hub      *fanout.Hub
	hubSub   stan.Subscription
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	guard, err := idempotency.NewGuard(cfg.ValkeyAddr, cfg.ValkeyPass, cfg.Idempotency)
	if err != nil {
		log.Fatalf("Failed to connect idempotency store: %v", err)
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.ValkeyAddr, cfg.ValkeyPass)
	if err != nil {
		log.Fatalf("Failed to connect seat cache: %v", err)
	}

	demandClient := external.NewDemandClient(cfg.Demand)
	paymentClient := external.NewPaymentClient(cfg.Payment)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, guard, natsClient, valkeyClient, demandClient, paymentClient, cfg.HoldDuration, cfg.ConfirmTimeout)

	// Every API instance feeds its own hub from the transition subject, so
	// SSE subscribers see deltas no matter which instance wrote them.
	hub := fanout.NewHub()
	hubSub, err := natsClient.Subscribe(models.SubjectSeatTransition, hub.HandleMessage)
	if err != nil {
		log.Fatalf("Failed to subscribe fan-out hub: %v", err)
	}

	server := &Server{
		router:   gin.New(),
		config:   cfg,
		db:       db,
		nats:     natsClient,
		guard:    guard,
		valkey:   valkeyClient,
		hub:      hub,
		hubSub:   hubSub,
		services: services,
		repos:    repos,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Metrics())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.valkey, s.hub)

	api := s.router.Group("/api")

	// SSE streams outlive any per-request deadline, so the stream route
	// stays outside the timed group.
	api.GET("/events/:id/stream", h.StreamSeatEvents)

	timed := api.Group("", middleware.Timeout(s.config.RequestTimeout))
	{
		timed.POST("/events", h.CreateEvent)

		timed.GET("/seats", h.ListSeats)
		timed.GET("/seats/quote", h.QuoteSeat)

		timed.POST("/bookings", h.BookSeats)

		timed.GET("/orders/:id", h.GetOrder)
		timed.PATCH("/orders/initiatePayment", h.InitiatePayment)
		timed.PATCH("/orders/cancel", h.CancelOrder)
		timed.PATCH("/orders/refund", h.RefundOrder)

		timed.GET("/payments/success", h.NotifyPaymentCompleted)
		timed.GET("/payments/fail", h.NotifyPaymentFailed)
		timed.POST("/payments/notifications", h.OnPaymentUpdates)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	natsStatus := "connected"
	if !s.nats.IsConnected() {
		natsStatus = "disconnected"
	}

	status := http.StatusOK
	overall := "healthy"
	if dbHealth.Status != "healthy" || natsStatus != "connected" {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbHealth,
		"nats":     natsStatus,
	})
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// Handler exposes the router for tests and custom http.Server setups.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Cleanup() {
	if s.hubSub != nil {
		s.hubSub.Close()
	}
	if s.nats != nil {
		s.nats.Close()
	}
	if s.guard != nil {
		s.guard.Close()
	}
	if s.valkey != nil {
		s.valkey.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
