package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/karthiknish/aroosi-onboarding/internal/backend"
	"github.com/karthiknish/aroosi-onboarding/internal/config"
	"github.com/karthiknish/aroosi-onboarding/internal/logging"
	"github.com/karthiknish/aroosi-onboarding/internal/middleware"
	"github.com/karthiknish/aroosi-onboarding/internal/notification"
	"github.com/karthiknish/aroosi-onboarding/internal/session"
	"github.com/karthiknish/aroosi-onboarding/internal/staging"
	"github.com/karthiknish/aroosi-onboarding/internal/submission"
	"github.com/karthiknish/aroosi-onboarding/internal/upload"
	"github.com/karthiknish/aroosi-onboarding/internal/wizard"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores and collaborators
	store := session.NewRedisStore(d.Cache)
	persistence := session.NewPersistence(store, d.Cfg.SnapshotTTL)
	blobs := staging.NewPostgresRepository(d.DB)

	upstream := backend.NewClient(d.Cfg.BackendBaseURL, backend.StaticToken(d.Cfg.BackendAPIToken), nil)

	guards := upload.Guards{
		MinWidth:       d.Cfg.MinImageDimension,
		MinHeight:      d.Cfg.MinImageDimension,
		MinAspectRatio: d.Cfg.MinAspectRatio,
		MaxAspectRatio: d.Cfg.MaxAspectRatio,
		MaxBytes:       d.Cfg.MaxImageBytes,
	}
	pipeline := upload.New(blobs, upstream, guards, nil, logging.Named(d.Logger, "upload"))

	notifier := notification.NewLoggerNotifier(d.Logger)
	orchestrator := submission.New(upstream, pipeline, blobs, persistence, notifier, logging.Named(d.Logger, "submission"))

	controller := wizard.NewController(nil)
	secret := []byte(d.Cfg.TokenSecret)

	wizardHandler := wizard.NewHandler(controller, persistence, secret, d.Cfg.SnapshotTTL)
	stagingHandler := staging.NewHandler(blobs, persistence, d.Cfg.MaxImageBytes)
	submissionHandler := submission.NewHandler(orchestrator, persistence)

	v1 := app.Group("/api/v1")

	// Public: opening a session needs no token.
	RegisterWizardStart(v1, wizardHandler)

	// Session-scoped routes
	sessionAuth := middleware.SessionAuth(secret)
	protected := v1.Group("", sessionAuth)
	RegisterWizardRoutes(protected, wizardHandler)
	stagingLimiter := middleware.StagingRateLimit(d.Cache, d.Cfg.StagingRateLimit)
	RegisterImageRoutes(protected, stagingHandler, stagingLimiter)
	RegisterSubmissionRoutes(protected, submissionHandler)

	return nil
}
