package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/brainchat/wabridge/internal/ai"
	"github.com/brainchat/wabridge/internal/bot"
	"github.com/brainchat/wabridge/internal/gateway"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	// --- Logger ---
	var logger *zap.Logger
	var err error
	if os.Getenv("APP_ENV") == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	// --- DB ---
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// --- Bot module wiring ---
	repo := bot.NewRepo(db)

	aiClient, err := ai.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"), 30*time.Second)
	if err != nil {
		logger.Fatal("ai client init error", zap.Error(err))
	}

	gw, err := gateway.NewClient(os.Getenv("GATEWAY_WS_URL"), logger)
	if err != nil {
		logger.Fatal("gateway init error", zap.Error(err))
	}

	handoverDuration := bot.DefaultHandoverDuration
	if v := os.Getenv("HANDOVER_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			handoverDuration = time.Duration(minutes) * time.Minute
		}
	}

	store := bot.NewStore(repo, logger)
	gate := bot.NewIntakeGate(nil)
	handover := bot.NewHandover(nil)
	emitter := bot.NewEmitter(repo, logger)

	svc := bot.NewService(store, repo, aiClient, gw, gate, handover, emitter, logger,
		bot.ServiceConfig{HandoverDuration: handoverDuration})

	handler := bot.NewHandler(svc, repo)
	bot.RegisterRoutes(r, handler)

	// --- Gateway read loop ---
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		err := gw.Run(ctx, func(ctx context.Context, tenant string, env bot.Envelope) {
			if err := svc.HandleEnvelope(ctx, tenant, env); err != nil {
				logger.Error("envelope handling failed",
					zap.String("tenant", tenant),
					zap.Error(err),
				)
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Fatal("gateway loop stopped", zap.Error(err))
		}
	}()

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	logger.Info("listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
