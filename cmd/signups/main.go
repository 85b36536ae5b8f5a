package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dukerupert/signups/internal/blob"
	"github.com/dukerupert/signups/internal/config"
	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/email"
	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/logging"
	"github.com/dukerupert/signups/internal/server"
	"github.com/dukerupert/signups/internal/sms"
	"github.com/dukerupert/signups/internal/store"
)

var errNoUser = errors.New("no user with that email; register first")

func main() {
	grantAdmin := flag.String("grant-admin", "", "mark the user with this email as an admin and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.Production)

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *grantAdmin != "" {
		if err := promote(db, *grantAdmin); err != nil {
			logger.Error("grant admin", "email", *grantAdmin, "error", err)
			os.Exit(1)
		}
		logger.Info("admin granted", "email", *grantAdmin)
		return
	}

	mailer := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)
	if !mailer.Configured() {
		logger.Warn("postmark token not set, email delivery disabled")
	}
	texter := sms.NewSender(sms.Config{
		Region:            cfg.AWSRegion,
		AccessKey:         cfg.AWSAccessKeyID,
		SecretKey:         cfg.AWSSecretAccessKey,
		OriginationNumber: cfg.SMSOriginationNumber,
	})
	if !texter.Configured() {
		logger.Warn("aws credentials not set, sms delivery disabled")
	}
	images := blob.NewStore(blob.Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.ImageBucket,
		Region:    cfg.AWSRegion,
		AccessKey: cfg.AWSAccessKeyID,
		SecretKey: cfg.AWSSecretAccessKey,
	})

	deps := server.Deps{
		JWTSecret:      []byte(cfg.JWTSecret),
		Production:     cfg.Production,
		OriginPatterns: originPatterns(cfg.BaseURL),
		Mailer:         mailer,
		Texter:         texter,
		Images:         images,
	}
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.Warn("discord alerts disabled", "error", err)
		} else {
			deps.Discord = session
			deps.DiscordChannel = cfg.DiscordChannelID
		}
	}

	srv := server.New(db, deps, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runCleanup(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "driver", cfg.DatabaseDriver, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func runCleanup(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			srv.RateLimiter().Cleanup()
			logger.Debug("rate limiter cleaned")
		case <-ctx.Done():
			return
		}
	}
}

func promote(db *database.DB, addr string) error {
	ctx := context.Background()
	normalized, err := identity.NormalizeEmail(addr)
	if err != nil {
		return err
	}
	u, err := store.NewUserStore(db).GetByEmail(ctx, normalized)
	if err != nil {
		return err
	}
	if u == nil {
		return errNoUser
	}
	return store.NewAdminStore(db).Grant(ctx, u.ID)
}

// originPatterns allows websocket upgrades from the site's own host.
func originPatterns(baseURL string) []string {
	for _, scheme := range []string{"https://", "http://"} {
		if host, ok := strings.CutPrefix(baseURL, scheme); ok && host != "" {
			return []string{host}
		}
	}
	return nil
}
