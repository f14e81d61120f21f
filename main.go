package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storybook-order-service/common/auth"
	"storybook-order-service/common/logger"
	"storybook-order-service/common/middleware"
	"storybook-order-service/controllers"
	"storybook-order-service/database"
	"storybook-order-service/notifications"
	aws_pkg "storybook-order-service/pkg/aws"
	"storybook-order-service/repository"
	"storybook-order-service/routes"
	"storybook-order-service/sender"
	"storybook-order-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const serviceName = "storybook-order-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatal("[StorybookOrders] Failed to load config: ", err)
	}

	zapLogger, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("[StorybookOrders] Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	db, err := database.ConnectPostgres(cfg.Postgres, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	var awsCfg *sdkaws.Config
	if cfg.OrderTopicArn != "" || cfg.CloudWatchEnabled {
		loaded, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			zapLogger.Warn("AWS config unavailable, SNS and CloudWatch disabled", zap.Error(err))
		} else {
			awsCfg = &loaded
		}
	}

	var deduper services.EventDeduper
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("Redis unavailable, webhook dedupe fast path disabled", zap.Error(err))
		} else {
			deduper = services.NewRedisEventDeduper(redisClient, 24*time.Hour)
		}
	}

	store := repository.NewGormLedgerStore(db)
	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	notifier := buildNotifier(cfg, awsCfg, zapLogger)

	orderService := services.NewOrderService(store, stripeSvc, notifier, zapLogger, services.CheckoutConfig{
		DefaultCurrency: cfg.DefaultCurrency,
		SuccessURL:      cfg.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       cfg.FrontendURL + "/checkout/cancelled",
	})
	commentService := services.NewCommentService(store, notifier, zapLogger)
	financeService := services.NewFinanceService(store, stripeSvc, notifier, zapLogger, cfg.MaxFixedDiscountCents)
	webhookService := services.NewWebhookService(store, deduper, zapLogger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	var metrics middleware.MetricsRecorder
	if awsCfg != nil && cfg.CloudWatchEnabled {
		metrics = aws_pkg.NewMetricsClient(*awsCfg, cfg.CloudWatchNamespace, true)
	}
	limiter := middleware.NewRateLimiter(ctx, rate.Limit(20), 40, 10*time.Minute)

	r.Use(
		logger.RequestID(),
		middleware.RequestLogger(zapLogger),
		gin.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.RateLimitMiddleware(limiter),
		middleware.MetricsMiddleware(metrics, serviceName),
		middleware.Timeout(30*time.Second),
	)

	routes.RegisterRoutes(r, auth.NewTokenParser(cfg.JWTSecret), routes.Controllers{
		Orders:   controllers.NewOrderController(orderService),
		Comments: controllers.NewCommentController(commentService),
		Admin:    controllers.NewAdminController(financeService),
		Webhooks: controllers.NewWebhookController(stripeSvc, webhookService, zapLogger),
	})

	r.GET("/health", healthHandler(db))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Storybook order service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down storybook order service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zapLogger.Error("Failed to close Redis", zap.Error(err))
		}
	}
	zapLogger.Info("Storybook order service stopped gracefully")
}

// buildNotifier fans out to every configured channel, falling back to logs.
func buildNotifier(cfg *Config, awsCfg *sdkaws.Config, log *zap.Logger) services.Notifier {
	var fanout notifications.Multi

	if cfg.OrderTopicArn != "" && awsCfg != nil {
		fanout = append(fanout, notifications.NewSNSNotifier(aws_pkg.NewSNSClient(*awsCfg), cfg.OrderTopicArn))
	}

	if cfg.SMTPHost != "" {
		smtpSender, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			log.Warn("SMTP sender disabled", zap.Error(err))
		} else if email, err := notifications.NewEmailNotifier(smtpSender, cfg.FrontendURL, log); err != nil {
			log.Warn("Email notifier disabled", zap.Error(err))
		} else {
			fanout = append(fanout, email)
		}
	}

	if len(fanout) == 0 {
		return notifications.NewLogNotifier(log)
	}
	return fanout
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	}
}
