package app

import (
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/protoquote/internal/adapters/httpserver"
	"github.com/phenrril/protoquote/internal/adapters/notify/mail"
	"github.com/phenrril/protoquote/internal/adapters/repo/postgres"
	"github.com/phenrril/protoquote/internal/adapters/storage/localfs"
	"github.com/phenrril/protoquote/internal/config"
	"github.com/phenrril/protoquote/internal/domain"
	"github.com/phenrril/protoquote/internal/usecase"
)

type App struct {
	DB          *gorm.DB
	Config      config.Config
	QuoteUC     *usecase.QuoteUC
	Customers   domain.CustomerRepo
	Storage     domain.FileStorage
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB, cfg config.Config) (*App, error) {
	custRepo := postgres.NewCustomerRepo(db)
	quoteRepo := postgres.NewQuoteRepo(db)

	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, err
	}
	storage := localfs.New(cfg.StorageDir)

	if !cfg.Mail.Enabled() {
		log.Warn().Msg("SMTP not configured, quote requests will not be mailed")
	}

	app := &App{
		DB:          db,
		Config:      cfg,
		Customers:   custRepo,
		Storage:     storage,
		OAuthConfig: googleOAuth(cfg),
	}
	app.QuoteUC = &usecase.QuoteUC{
		Quotes:    quoteRepo,
		Customers: custRepo,
		Storage:   storage,
		Notifier:  mail.New(cfg.Mail),
		Pricing:   cfg.Pricing,
	}
	return app, nil
}

func googleOAuth(cfg config.Config) *oauth2.Config {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.QuoteUC, a.Customers, a.OAuthConfig, httpserver.Options{
		SessionKey:  a.Config.SessionKey,
		AdminUser:   a.Config.AdminUser,
		AdminPass:   a.Config.AdminPass,
		AdminSecret: a.Config.AdminSecret,
		Secure:      strings.HasPrefix(a.Config.BaseURL, "https://"),
		TrustProxy:  a.Config.TrustProxy,
	})
}

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(&domain.Customer{}, &domain.QuoteRequest{}); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_quote_requests_created_at ON quote_requests(created_at DESC)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_quote_requests_status_created ON quote_requests(status, created_at DESC)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_quote_requests_specs_gin ON quote_requests USING gin (specifications)").Error

	_ = a.DB.Exec("UPDATE quote_requests SET status = 'pending' WHERE status IS NULL OR status = ''").Error
	_ = a.DB.Exec("UPDATE customers SET email = lower(email) WHERE email <> lower(email)").Error
	return nil
}
