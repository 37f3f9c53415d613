package main

import (
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/dareroom/gameserver/config"
	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/persistence"
	"github.com/dareroom/gameserver/relay"
	"github.com/dareroom/gameserver/services"
)

func main() {
	logger.Init()

	if err := godotenv.Load(); err != nil {
		logger.Log.Info(".env file not found, using system environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		token = cfg.Bot.Token
	}
	if token == "" {
		logger.Log.Fatal("BOT_TOKEN not set")
	}

	pg := cfg.Database.Postgres
	var store persistence.Store
	if cfg.Database.Driver == "sql" {
		store, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	} else {
		store, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	// The bot shares the consensus engine with the API server; no
	// event feed or metrics from this process.
	proofs := services.NewProofService(store, nil, nil)

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Log.Fatalf("Failed to start bot: %v", err)
	}
	logger.Log.Infof("Relay bot authorized as @%s", bot.Self.UserName)

	handler := relay.NewHandler(bot, store, proofs, cfg.Bot.MiniAppURL)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	for update := range bot.GetUpdatesChan(u) {
		handler.HandleUpdate(update)
	}
}
