package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mesada/internal/auth"
	"mesada/internal/chat"
	"mesada/internal/notify"
	"mesada/internal/server"
	"mesada/internal/storage/sqlite"
	"mesada/internal/tasks"
	"mesada/internal/util"
	"mesada/internal/whatsapp"
)

func main() {
	addrFlag := flag.String("addr", util.EnvOrDefault("MESADA_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("MESADA_DB_PATH", "data/mesada.db"), "Path to sqlite database file")
	staticFlag := flag.String("static", util.EnvOrDefault("MESADA_STATIC_DIR", "web/dist"), "Directory with built dashboard")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("Mesada Mestre backend starting")

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewLogger(logger)
	taskClient := tasks.NewClient(store, notifier, logger)
	chatClient := chat.NewClient(store, notifier, logger)
	defer chatClient.Close()

	authManager := auth.NewManager(auth.Config{
		SecretKey:     util.EnvOrDefault("MESADA_JWT_SECRET", ""),
		TokenDuration: 24 * time.Hour,
		Issuer:        "mesada",
	})
	sender := whatsapp.NewSender(os.Getenv("WHATSAPP_API_KEY"), logger)

	srv := server.New(server.Config{
		Store:       store,
		Tasks:       taskClient,
		Chat:        chatClient,
		Auth:        authManager,
		Sender:      sender,
		Logger:      logger,
		StaticDir:   *staticFlag,
		VerifyToken: util.EnvOrDefault("WHATSAPP_VERIFY_TOKEN", server.DefaultVerifyToken),
	})

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
