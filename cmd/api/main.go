package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"courseledger/internal/config"
	"courseledger/internal/database"
	"courseledger/internal/domain"
	"courseledger/internal/middleware"
	"courseledger/internal/modules/admin"
	"courseledger/internal/modules/gateway"
	"courseledger/internal/modules/notification"
	"courseledger/internal/modules/reconcile"
	jwtsvc "courseledger/internal/pkg/jwt"
	"courseledger/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	loggerf := logger.Sugar().Infof

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(&domain.StudentLedger{}, &domain.PendingPayment{}); err != nil {
		logger.Fatal("automigrate failed", zap.Error(err))
	}

	ledgerRepo := repository.NewStudentLedgerRepository(db)
	pendingRepo := repository.NewPendingPaymentRepository(db)

	var notifier reconcile.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Fatal("kafka notifier init failed", zap.Error(err))
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = notification.NewLogNotifier(logger)
	}

	reconcileService := reconcile.NewService(ledgerRepo, pendingRepo, notifier, loggerf)
	reconcileService.SetStoreTimeout(cfg.StoreTimeout)
	reconcileService.SetOutcomeHook(middleware.RecordReconcileOutcome)

	gatewayService := gateway.NewService(pendingRepo, reconcileService, cfg.WebhookSecret, loggerf)
	gatewayHandler := gateway.NewHandler(gatewayService, loggerf)

	adminService := admin.NewService(ledgerRepo)
	adminHandler := admin.NewHandler(adminService)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.PrometheusHandler())

	v1 := r.Group("/api/v1")
	{
		// public: webhook + checkout surface
		gatewayHandler.RegisterRoutes(v1)

		protected := v1.Group("/admin")
		protected.Use(authMiddleware(j))
		{
			adminHandler.RegisterRoutes(protected)
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("courseledger started", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func authMiddleware(jwt *jwtsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing Authorization header",
				},
			})
			return
		}

		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid Authorization header",
				},
			})
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Empty token",
				},
			})
			return
		}

		claims, err := jwt.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid token",
				},
			})
			return
		}

		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}
