package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-quiz-service/internal/app"
	"adaptive-quiz-service/internal/auth"
	"adaptive-quiz-service/internal/config"
	"adaptive-quiz-service/internal/infra/memory"
	"adaptive-quiz-service/internal/infra/postgres"
	infraredis "adaptive-quiz-service/internal/infra/redis"
	transport "adaptive-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the persistence backends picked from config.
type stores struct {
	questions app.QuestionStore
	datasets  app.DatasetStore
	sessions  app.SessionStore
	users     app.UserStore
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if admin := os.Getenv("ADMIN_EMAIL"); admin != "" {
		cfg.Auth.AdminEmail = admin
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured (auth.secret or JWT_SECRET)")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var st stores
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		questionStore := postgres.NewQuestionStore(pool)
		st = stores{
			questions: questionStore,
			datasets:  questionStore,
			sessions:  postgres.NewSessionStore(pool),
			users:     postgres.NewUserStore(pool),
		}
	} else {
		log.Printf("postgres url not configured, keeping data in memory")
		questionStore := memory.NewQuestionStore()
		sessions := memory.NewSessionStore()
		users := memory.NewUserStore()
		questionStore.OnDelete(sessions.DropQuestions)
		users.OnDelete(questionStore.DropUser)
		users.OnDelete(sessions.DropUser)
		st = stores{
			questions: questionStore,
			datasets:  questionStore,
			sessions:  sessions,
			users:     users,
		}
	}

	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	var questions app.QuestionStore
	var board app.Scoreboard
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		questions = infraredis.NewQuestionCache(redisClient, st.questions, cacheTTL)
		leaderboard := infraredis.NewLeaderboard(redisClient)
		if err := seedLeaderboard(ctx, leaderboard, st.sessions); err != nil {
			return err
		}
		board = leaderboard
	} else {
		questions = memory.NewQuestionCache(st.questions, cacheTTL)
	}

	quiz := app.NewQuizService(questions, st.sessions, board)
	datasets := app.NewDatasetService(st.datasets, questions)
	accounts := app.NewAccountService(
		st.users,
		auth.NewTokens(cfg.Auth.Secret),
		memory.NewMailer(cfg.Mail.ResetLinkBase),
		app.AccountOptions{
			TokenTTL:      config.TTLDuration(cfg.Auth.TokenTTL, time.Hour),
			ResetTTL:      config.TTLDuration(cfg.Auth.ResetTTL, 15*time.Minute),
			ResetCooldown: config.TTLDuration(cfg.Auth.ResetCooldown, time.Minute),
			AdminEmail:    cfg.Auth.AdminEmail,
		},
	)

	handler := transport.NewHandler(quiz, datasets, accounts, cfg.Quiz.LeaderboardSize)
	wsHandler := transport.NewWSHandler(quiz, accounts)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, wsHandler, accounts, cfg.CORS.AllowedOrigins...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

// seedLeaderboard copies persisted scores into Redis so the ranking survives a
// flushed or freshly attached Redis.
func seedLeaderboard(ctx context.Context, leaderboard *infraredis.Leaderboard, sessions app.SessionStore) error {
	scores, err := sessions.TopScores(ctx, 0)
	if err != nil {
		return fmt.Errorf("load scores: %w", err)
	}
	if err := leaderboard.Seed(ctx, scores); err != nil {
		return fmt.Errorf("seed leaderboard: %w", err)
	}
	log.Printf("leaderboard seeded with %d scores", len(scores))
	return nil
}
