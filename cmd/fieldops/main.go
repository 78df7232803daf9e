package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hollowaydev/fieldops/internal/database"
	"github.com/hollowaydev/fieldops/internal/logging"
	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/notify"
	"github.com/hollowaydev/fieldops/internal/server"
	"github.com/hollowaydev/fieldops/internal/store"
)

func main() {
	genKeys := flag.Bool("genkeys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		pub, priv, err := notify.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("FIELDOPS_VAPID_PUBLIC_KEY=%s\nFIELDOPS_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	logger := logging.Setup(os.Getenv("FIELDOPS_LOG_LEVEL"))

	port := os.Getenv("FIELDOPS_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("FIELDOPS_DB_PATH")
	if dbPath == "" {
		dbPath = "fieldops.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var provider notify.Provider
	vapidPub := os.Getenv("FIELDOPS_VAPID_PUBLIC_KEY")
	vapidPriv := os.Getenv("FIELDOPS_VAPID_PRIVATE_KEY")
	if vapidPub != "" && vapidPriv != "" {
		provider = notify.NewWebPushProvider(vapidPub, vapidPriv, os.Getenv("FIELDOPS_VAPID_SUBSCRIBER"))
	} else {
		logger.Warn("VAPID keys not set, push delivery disabled")
	}

	sendTimeout := 30 * time.Second
	if v := os.Getenv("FIELDOPS_SEND_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			sendTimeout = time.Duration(secs) * time.Second
		}
	}

	srv := server.New(db, provider, server.Config{SendTimeout: sendTimeout}, logger)

	if err := bootstrapAdmin(srv.UserStore(), logger); err != nil {
		logger.Error("bootstrap admin", "error", err)
		os.Exit(1)
	}

	// Hourly sweep of expired sessions and stale rate-limit windows.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("session cleanup", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(cleanupDone)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// bootstrapAdmin creates the initial administrator account from the
// environment if it does not exist yet. Without it a fresh database has no
// way to log in.
func bootstrapAdmin(users *store.UserStore, logger *slog.Logger) error {
	email := os.Getenv("FIELDOPS_ADMIN_EMAIL")
	password := os.Getenv("FIELDOPS_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	existing, err := users.GetByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := users.Create(email, "Administrator", string(hash), model.RoleAdmin)
	if err != nil {
		return err
	}
	logger.Info("admin account created", "user_id", u.ID, "email", email)
	return nil
}
