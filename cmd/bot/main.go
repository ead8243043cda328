package main

import (
	"context"
	"log"
	"time"

	"starsref-bot/internal/bot"
	"starsref-bot/internal/config"
	"starsref-bot/internal/database"
	"starsref-bot/internal/flyer"
	"starsref-bot/internal/gate"
	"starsref-bot/internal/ledger"
	"starsref-bot/internal/notify"
	"starsref-bot/internal/rank"
	"starsref-bot/internal/referral"
	"starsref-bot/internal/subgram"
	"starsref-bot/internal/withdraw"
	"starsref-bot/internal/worker"

	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const connectBackoff = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The store being down at startup is retried, not fatal.
	var db *gorm.DB
	for {
		db, err = database.ConnectPostgres(cfg)
		if err == nil {
			break
		}
		log.Printf("Could not connect to database, retrying in %s: %v", connectBackoff, err)
		time.Sleep(connectBackoff)
	}

	var rdb *redis.Client
	for {
		rdb, err = database.ConnectRedis(cfg)
		if err == nil {
			break
		}
		log.Printf("Could not connect to redis, retrying in %s: %v", connectBackoff, err)
		time.Sleep(connectBackoff)
	}

	instance, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	store := ledger.NewGormStore(db)
	flyerClient := flyer.NewClient(cfg.FlyerBaseURL, cfg.FlyerAPIKey)
	subgramClient := subgram.NewClient(cfg.SubgramBaseURL, cfg.SubgramAPIKey)
	gateEval := gate.NewEvaluator(flyerClient, subgramClient)
	ranks := rank.NewService(store)
	notifier := notify.NewTelegramNotifier(instance, cfg.ReviewChannelID)
	referrals := referral.NewEngine(store, notifier, cfg.ReferralReward)
	withdrawals := withdraw.NewService(store, notifier)

	tgBot := bot.New(instance, gateEval, referrals, ranks, withdrawals, store, rdb, cfg.AdminID)

	resetter := worker.NewResetter(ranks, rdb)
	go resetter.Start(context.Background())

	log.Println("Service started successfully")
	tgBot.Start()
}
