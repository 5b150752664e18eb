package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/KeithOmondi/kian-optics/internal/models"
)

type Config struct {
	HTTP_ADDR   string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET     string
	REFRESH_SECRET string

	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USER     string
	SMTP_PASSWORD string
	SMTP_FROM     string

	MPESA_BASE_URL              string
	MPESA_CONSUMER_KEY          string
	MPESA_CONSUMER_SECRET       string
	MPESA_SHORTCODE             string
	MPESA_LIPA_SHORTCODE        string
	MPESA_LIPA_SHORTCODE_SECRET string
	MPESA_PAYBILL               string
	MPESA_PASSKEY               string
	MPESA_CALLBACK_URL          string

	IMGHOST_URL    string
	IMGHOST_KEY    string
	IMGHOST_SECRET string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:   getenvDefault("HTTP_ADDR", ":8080"),
		LOG_LEVEL:   os.Getenv("LOG_LEVEL"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		SMTP_HOST:     os.Getenv("SMTP_HOST"),
		SMTP_PORT:     getenvDefault("SMTP_PORT", "587"),
		SMTP_USER:     os.Getenv("SMTP_USER"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     os.Getenv("SMTP_FROM"),

		MPESA_BASE_URL:              getenvDefault("MPESA_BASE_URL", "https://api.safaricom.co.ke"),
		MPESA_CONSUMER_KEY:          os.Getenv("MPESA_CONSUMER_KEY"),
		MPESA_CONSUMER_SECRET:       os.Getenv("MPESA_CONSUMER_SECRET"),
		MPESA_SHORTCODE:             os.Getenv("MPESA_SHORTCODE"),
		MPESA_LIPA_SHORTCODE:        os.Getenv("MPESA_LIPA_SHORTCODE"),
		MPESA_LIPA_SHORTCODE_SECRET: os.Getenv("MPESA_LIPA_SHORTCODE_SECRET"),
		MPESA_PAYBILL:               os.Getenv("MPESA_PAYBILL"),
		MPESA_PASSKEY:               os.Getenv("MPESA_PASSKEY"),
		MPESA_CALLBACK_URL:          os.Getenv("MPESA_CALLBACK_URL"),

		IMGHOST_URL:    os.Getenv("IMGHOST_URL"),
		IMGHOST_KEY:    os.Getenv("IMGHOST_KEY"),
		IMGHOST_SECRET: os.Getenv("IMGHOST_SECRET"),
	}

	return config, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.Product{},
		&models.Shop{},
		&models.User{},
		&models.RefreshToken{},
	)
}
