package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken        string `env:"BOT_TOKEN,required"`
	FlyerAPIKey     string `env:"FLYER_API_KEY,required"`
	FlyerBaseURL    string `env:"FLYER_API_URL" envDefault:"https://api.flyerservice.io"`
	SubgramAPIKey   string `env:"SUBGRAM_API_KEY,required"`
	SubgramBaseURL  string `env:"SUBGRAM_API_URL" envDefault:"https://api.subgram.ru"`
	AdminID         int64  `env:"ADMIN_ID,required"`
	ReviewChannelID int64  `env:"REVIEW_CHANNEL_ID,required"`
	DatabaseURL     string `env:"DATABASE_URL,required"`
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" envDefault:""`
	ReferralReward  int64  `env:"REFERRAL_REWARD" envDefault:"3"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
