package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/relay-gateway/internal/api"
	"github.com/ignite/relay-gateway/internal/auth"
	"github.com/ignite/relay-gateway/internal/config"
	"github.com/ignite/relay-gateway/internal/dispatch"
	"github.com/ignite/relay-gateway/internal/mailer"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
	"github.com/ignite/relay-gateway/internal/storage"
	"github.com/ignite/relay-gateway/internal/throttle"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func buildMailer(cfg *config.Config) (mailer.Mailer, error) {
	switch cfg.Relay.Vendor {
	case "ses":
		return mailer.NewSESMailer(mailer.SESConfig{
			AccessKey: cfg.Relay.SESAccessKey,
			SecretKey: cfg.Relay.SESSecretKey,
			Region:    cfg.Relay.SESRegion,
		})
	case "smtp":
		return mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:                     cfg.Relay.Host,
			Port:                     cfg.Relay.Port,
			Username:                 cfg.Relay.Username,
			Password:                 cfg.Relay.Password,
			PoolSize:                 cfg.Relay.PoolSize,
			MaxMessagesPerConnection: cfg.Relay.MaxMessagesPerConnection,
			DialTimeout:              cfg.Relay.DialTimeout(),
			InsecureSkipVerify:       cfg.Relay.InsecureSkipVerify,
		}), nil
	default:
		return nil, fmt.Errorf("unknown relay vendor %q", cfg.Relay.Vendor)
	}
}

func main() {
	log.Println("╔════════════════════════════════════════════╗")
	log.Println("║  Relay Gateway (cmd/server/main.go)        ║")
	log.Println("╚════════════════════════════════════════════╝")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Auth.DevMode {
		logger.SetLevel(logger.DEBUG)
		logger.SetRedactPII(false)
	}

	// Pre-flight check: verify the target port is available
	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	// Delivery log (optional)
	var store *storage.Storage
	if cfg.Storage.DatabaseURL != "" {
		store, err = storage.New(cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize delivery log: %v", err)
		}
		defer store.Close()
		log.Println("Delivery log connected")
	} else {
		log.Println("No DATABASE_URL configured, delivery log disabled")
	}

	// Mail relay
	m, err := buildMailer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}
	log.Printf("Mailer initialized: vendor=%s pool_size=%d", cfg.Relay.Vendor, cfg.Relay.PoolSize)

	engine := dispatch.NewEngine(m, cfg.Report.SystemSender, cfg.Relay.PoolSize)
	if store != nil {
		engine.SetRecorder(store)
	}

	// Rate limiter (optional)
	var limiter *throttle.Limiter
	if cfg.Throttle.Enabled && cfg.Throttle.RedisURL != "" {
		limits := throttle.DefaultLimits
		if cfg.Throttle.RequestsPerSecond > 0 {
			limits.RequestsPerSecond = cfg.Throttle.RequestsPerSecond
		}
		if cfg.Throttle.RequestsPerMinute > 0 {
			limits.RequestsPerMinute = cfg.Throttle.RequestsPerMinute
		}
		if cfg.Throttle.DailyLimit > 0 {
			limits.DailyLimit = cfg.Throttle.DailyLimit
		}
		limiter, err = throttle.NewLimiterFromURL(cfg.Throttle.RedisURL, limits)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		log.Println("Rate limiter connected")
	}

	keys := auth.NewKeyManager(cfg.Auth.APIKeys, cfg.Auth.DevMode)
	if !keys.Enabled() {
		log.Println("WARNING: API key auth disabled (no keys configured or dev mode)")
	}

	handlers := api.NewHandlers(engine, store, cfg.Auth.DevMode)
	router := api.SetupRoutes(handlers, keys, limiter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Drain pooled relay connections after in-flight requests finish
	if pooled, ok := m.(*mailer.SMTPMailer); ok {
		pooled.Close()
	}

	log.Println("Server stopped")
}
