package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"eduscroll-service/internal/app"
	"eduscroll-service/internal/config"
	"eduscroll-service/internal/domain"
	"eduscroll-service/internal/infra/memory"
	pgcontent "eduscroll-service/internal/infra/postgres"
	rediscontent "eduscroll-service/internal/infra/redis"
	transport "eduscroll-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the lesson service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var source app.ContentRepository = memory.NewStaticContentSource(sampleContent())
	if pool != nil {
		source = pgcontent.NewContentRepository(pool)
	}

	contentTTL := config.TTLDuration(cfg.Content.TTL, 10*time.Minute)
	var content app.ContentRepository
	if redisClient != nil {
		content = rediscontent.NewContentCache(redisClient, source, contentTTL)
	} else {
		content = memory.NewContentCache(source, contentTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = rediscontent.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var prefs app.Preferences
	if redisClient != nil {
		prefs = rediscontent.NewPrefsStore(redisClient)
	} else {
		prefs = memory.NewPrefs()
	}

	service := app.NewLessonService(store, content)
	wsHandler := transport.NewWSHandler(service)
	apiHandler := transport.NewAPIHandler(service, prefs)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/lesson", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting eduscroll service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleContent provides a minimal lesson set for running without Postgres.
func sampleContent() memory.ContentFixture {
	return memory.ContentFixture{
		Categories: []domain.Category{
			{ID: 1, Name: "Online Safety", Description: "Staying safe on the internet"},
		},
		Lessons: map[int][]domain.Lesson{
			1: {
				{ID: 1, Name: "Recognizing Phishing", Description: "Spotting fake messages", CategoryID: 1},
			},
		},
		Materials: map[int][]domain.Material{
			1: {
				{ID: 1, Title: "What is phishing?"},
			},
		},
		Paragraphs: map[int][]domain.Paragraph{
			1: {
				{ID: 1, ParagraphNumber: 1, Header: "The bait", Content: "Phishing messages imitate trusted senders to steal credentials."},
				{ID: 2, ParagraphNumber: 2, Header: "The hook", Content: "They push you to click a link or open an attachment right away."},
			},
		},
		Questions: map[int][]domain.Question{
			1: {
				{
					ID:            1,
					Prompt:        "A mail urges you to confirm your password via a link. What do you do?",
					OptionA:       "Click the link and sign in",
					OptionB:       "Verify the sender through another channel",
					OptionC:       "Forward it to friends",
					CorrectOption: "B",
					ExpGain:       10,
				},
				{
					ID:            2,
					Prompt:        "Which detail most often gives a phishing mail away?",
					OptionA:       "A mismatched sender domain",
					OptionB:       "A company logo",
					CorrectOption: "A",
					ExpGain:       10,
				},
			},
		},
	}
}
