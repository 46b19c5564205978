package server

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"

	"insights-gateway/config"
	"insights-gateway/handlers"
	"insights-gateway/middleware"
	"insights-gateway/services"

	_ "insights-gateway/docs"
)

const AppName = "insights-gateway"

// Deps are the collaborators the front door routes into.
type Deps struct {
	Insights handlers.InsightGenerator
	Health   map[string]handlers.Pinger
	Log      *zap.SugaredLogger
}

// New assembles the Fiber app. Explicit routes come first; the SPA
// catch-all is registered last.
func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               AppName,
		ErrorHandler:          middleware.ErrorHandler(deps.Log, cfg.IsProduction()),
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	if !cfg.IsProduction() {
		app.Use(cors.New())
	}
	if cfg.XRayEnabled {
		app.Use(middleware.XRayMiddleware(AppName, deps.Log))
	}

	insightHandler := handlers.NewInsightHandler(deps.Insights)
	healthHandler := handlers.NewHealthHandler(deps.Health)
	spaHandler := handlers.NewSPAHandler(cfg.IndexPath(), deps.Log)

	app.Get("/health", healthHandler.Health)

	// API routes
	api := app.Group("/api")
	api.Get("/test", healthHandler.APITest)
	api.Post("/generate-insights", insightHandler.GenerateInsights)

	if !cfg.IsProduction() {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Static trees fall through to the next route when a file is missing
	app.Static("/exported_results", cfg.ExportDir)
	app.Static("/", cfg.BuildDir)

	app.Get("/*", spaHandler.ServeIndex)

	// Anything left is a non-GET on an unknown path. Without this Fiber
	// answers 405 because the catch-all matched the path.
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Cannot "+c.Method()+" "+c.Path())
	})

	return app
}

// InsightOptions resolves the script invocation from the configuration.
// baseEnv is the environment captured at startup.
func InsightOptions(cfg *config.Config, baseEnv []string) (services.InsightOptions, error) {
	scriptPath, err := filepath.Abs(cfg.ScriptPath)
	if err != nil {
		return services.InsightOptions{}, err
	}
	scriptDir, err := filepath.Abs(cfg.ScriptDir)
	if err != nil {
		return services.InsightOptions{}, err
	}

	artifactPath := cfg.ArtifactPath
	if cfg.ArtifactStore == config.StoreLocal {
		if artifactPath, err = filepath.Abs(artifactPath); err != nil {
			return services.InsightOptions{}, err
		}
	}

	env := make([]string, 0, len(baseEnv)+len(cfg.ScriptEnv))
	env = append(env, baseEnv...)
	env = append(env, cfg.ScriptEnv...)

	return services.InsightOptions{
		Program:      cfg.Interpreter(),
		ScriptPath:   scriptPath,
		ScriptDir:    scriptDir,
		ArtifactPath: artifactPath,
		Env:          env,
		Timeout:      cfg.ScriptTimeout,
	}, nil
}

