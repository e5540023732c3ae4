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

	"cs-quiz-bot/internal/app"
	"cs-quiz-bot/internal/charts"
	"cs-quiz-bot/internal/config"
	"cs-quiz-bot/internal/infra/memory"
	pgstore "cs-quiz-bot/internal/infra/postgres"
	redisinfra "cs-quiz-bot/internal/infra/redis"
	"cs-quiz-bot/internal/question"
	"cs-quiz-bot/internal/scheduler"
	discordbot "cs-quiz-bot/internal/transport/discord"
	transport "cs-quiz-bot/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot and web surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
}

// persistence is the union of what the round service and the chat surface
// need from a store.
type persistence interface {
	app.ScoreStore
	discordbot.Store
}

// channelState is per-channel quiz state shared by the supplier and the bot.
type channelState interface {
	question.TopicState
	discordbot.ChannelState
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord token not configured (set discord.token or DISCORD_TOKEN)")
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

	var store persistence = memory.NewScoreStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	}

	cooldown := config.TTLDuration(cfg.Quiz.Cooldown, 7*time.Second)
	var state channelState = memory.NewChannelState(cooldown)
	var roundStore app.RoundStore = memory.NewRoundStore()
	if redisClient != nil {
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)
		state = redisinfra.NewChannelState(redisClient, cooldown, redisTTL)
		roundStore = redisinfra.NewRoundStore(redisClient, redisTTL)
	}

	rounds := app.NewRoundService(roundStore, store, app.Policy{
		Points:            cfg.Quiz.Points,
		OneAttemptPerUser: cfg.OneAttempt(),
	})

	client := question.NewClient(question.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.APIKey(),
		Models:      cfg.LLM.Models,
		Topics:      cfg.Quiz.Topics,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
		Timeout:     config.TTLDuration(cfg.LLM.Timeout, 30*time.Second),
	})
	supplier := question.NewSupplier(client, question.NewFallbackPool(nil), state)
	renderer := charts.NewRenderer()

	bot, err := discordbot.New(cfg.Discord.Token, rounds, supplier, store, state, renderer, discordbot.Options{
		Prefix:       cfg.Discord.Prefix,
		Points:       cfg.Quiz.Points,
		RoundTimeout: config.TTLDuration(cfg.Quiz.RoundTimeout, 0),
	})
	if err != nil {
		return err
	}
	if err := bot.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer bot.Close()
	log.Printf("discord gateway connected")

	sched, err := scheduler.New(cfg.Quiz.Cron, cfg.Quiz.Timezone, bot)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewHandler(rounds, renderer).Mux(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting web surface on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
