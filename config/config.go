package config

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string
	DatabaseName   string
	BaseURL        string
	Port           string
	AdminDiscordID string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string

	JWTSecret  string
	BotKeyHash string

	StripeSecretKey        string
	SendgridAPIKey         string
	CloudinaryUploadPreset string
	CloudinaryAPISecret    string

	// DisableTxn switches the activation workflow to plain conditional
	// updates for deployments without replica sets (standalone mongod).
	DisableTxn bool
}

// New sets up all config related services
func New() *Config {
	// local development loads a .env file, deployed pods set real env vars
	_ = godotenv.Load()

	//setup zap logger and replace default logger
	logger, _ := setLogger(os.Getenv("APP_ENV"))
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	return &Config{
		URL:            os.Getenv("DB_URI"),
		DatabaseName:   os.Getenv("DB_NAME"),
		BaseURL:        os.Getenv("BASE_URL"),
		Port:           os.Getenv("PORT"),
		AdminDiscordID: os.Getenv("ADMIN_DISCORD_ID"),

		DiscordClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		DiscordClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		DiscordRedirectURI:  os.Getenv("DISCORD_REDIRECT_URI"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		BotKeyHash: os.Getenv("BOT_API_KEY_HASH"),

		StripeSecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
		SendgridAPIKey:         os.Getenv("SENDGRID_API_KEY"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),

		DisableTxn: os.Getenv("DB_DISABLE_TXN") == "true",
	}
}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "development":
		return zap.NewDevelopment()
	case "production":
		return zap.NewProduction()
	default:
		return zap.NewExample(), nil
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: err.Error()},
	})
	w.Write(b)
}
