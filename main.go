package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appmodules "backoffice/app"
	"backoffice/app/jobs"
	"backoffice/app/tables"
	"backoffice/app/upstream"
	coremodules "backoffice/core/app"
	"backoffice/core/app/authorization"
	"backoffice/core/app/search"
	"backoffice/core/config"
	"backoffice/core/database"
	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/module"
	"backoffice/core/router"
	"backoffice/core/router/middleware"
	"backoffice/core/scheduler"
	"backoffice/core/storage"
	"backoffice/core/websocket"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Dealership Back-Office API
// @description Table listing, search, CSV import/export and upstream sync for the dealership back office
// @version 1.0.0
// @BasePath /api
// @schemes http https
// @accept json
// @produce json
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your token with the prefix "Bearer "

const shutdownTimeout = 10 * time.Second

// App holds the back-office application and its infrastructure
type App struct {
	config    *config.Config
	db        *database.Database
	router    *router.Router
	api       *router.RouterGroup
	logger    logger.Logger
	emitter   *emitter.Emitter
	storage   *storage.ActiveStorage
	datasets  *dataset.Store
	upstream  *upstream.Client
	auth      *authorization.AuthorizationService
	scheduler *scheduler.CronScheduler
	wsHub     *websocket.Hub
	registry  *search.SearchRegistry

	// State
	running bool
	verbose bool
	stderr  bool
}

// New creates a new application instance
func New(verbose bool) *App {
	return &App{verbose: verbose}
}

// Start initializes the application and serves HTTP until interrupted
func (app *App) Start() error {
	return app.
		loadEnvironment().
		initConfig().
		initLogger().
		initDatabase().
		initInfrastructure().
		initRouter().
		autoDiscoverModules().
		initJobs().
		setupRoutes().
		displayServerInfo().
		run()
}

// Bootstrap initializes everything a CLI command needs: no router, no jobs
func (app *App) Bootstrap() *App {
	app.stderr = true
	return app.
		loadEnvironment().
		initConfig().
		initLogger().
		initDatabase().
		initInfrastructure().
		autoDiscoverModules()
}

// loadEnvironment loads environment variables from .env when present
func (app *App) loadEnvironment() *App {
	_ = godotenv.Load()
	return app
}

func (app *App) initConfig() *App {
	app.config = config.NewConfig()
	app.registry = appmodules.GetSearchRegistry(app.config)
	return app
}

func (app *App) initLogger() *App {
	log, err := logger.NewLogger(logger.Config{
		Environment: app.config.Env,
		LogPath:     app.config.LogPath,
		Level:       app.config.LogLevel,
		Stderr:      app.stderr,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	app.logger = log
	return app
}

func (app *App) initDatabase() *App {
	db, err := database.InitDB(app.config)
	if err != nil {
		app.logger.Error("Failed to initialize database", logger.String("error", err.Error()))
		panic(fmt.Sprintf("Database initialization failed: %v", err))
	}

	app.db = db

	if app.verbose {
		app.logger.Info("Database connected", logger.String("driver", app.config.DBDriver))
	}

	return app
}

// initInfrastructure initializes the emitter, dataset store, storage,
// upstream client and authorization service
func (app *App) initInfrastructure() *App {
	app.emitter = emitter.New()

	datasets, err := dataset.New(dataset.Options{
		CacheSize: app.config.FilterCacheSize,
		Emitter:   app.emitter,
		Logger:    app.logger,
	})
	if err != nil {
		app.logger.Error("Failed to initialize dataset store", logger.String("error", err.Error()))
		panic(fmt.Sprintf("Dataset store initialization failed: %v", err))
	}
	app.datasets = datasets

	activeStorage, err := storage.NewActiveStorage(storage.Config{
		Provider:  app.config.StorageProvider,
		Path:      app.config.StoragePath,
		BaseURL:   app.config.StorageBaseURL,
		APIKey:    app.config.StorageAPIKey,
		APISecret: app.config.StorageAPISecret,
		AccountID: app.config.StorageAccountID,
		Endpoint:  app.config.StorageEndpoint,
		Bucket:    app.config.StorageBucket,
		Region:    app.config.StorageRegion,
		CDN:       app.config.CDN,
	})
	if err != nil {
		// exports to storage are unavailable, everything else works
		app.logger.Error("Failed to initialize storage", logger.String("error", err.Error()))
	} else {
		app.storage = activeStorage
		if app.verbose {
			app.logger.Info("Storage initialized", logger.String("provider", app.config.StorageProvider))
		}
	}

	app.upstream = upstream.NewClient(upstream.Config{
		BaseURL:   app.config.UpstreamBaseURL,
		Token:     app.config.UpstreamToken,
		RPS:       app.config.UpstreamRPS,
		Timeout:   app.config.UpstreamTimeout,
		Endpoints: app.config.UpstreamEndpoints,
	}, app.logger)

	if app.config.AuthEnabled && app.config.JWTSecret == "" {
		panic("AUTH_ENABLED requires JWT_SECRET")
	}
	app.auth = authorization.NewAuthorizationService(app.db.DB, app.config.JWTSecret)

	return app
}

// initRouter initializes the router with middleware
func (app *App) initRouter() *App {
	app.router = router.New()
	app.setupMiddleware()
	app.setupStaticRoutes()
	app.api = app.router.Group("/api", authorization.Authenticate())
	app.initWebSocket()

	if app.verbose {
		app.logger.Info("Router and middleware initialized")
	}

	return app
}

func (app *App) setupMiddleware() {
	middleware.ApplyConfigurableMiddleware(app.router, &app.config.Middleware)

	app.router.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c *router.Context) error {
			path := c.Request.URL.Path

			if app.config.Middleware.IsLoggingRequired(path) {
				start := time.Now()
				err := next(c)

				app.logger.Info("Request",
					logger.String("method", c.Request.Method),
					logger.String("path", path),
					logger.Int("status", c.Writer.Status()),
					logger.Duration("duration", time.Since(start)),
					logger.String("ip", c.ClientIP()),
				)
				return err
			}

			return next(c)
		}
	})

	if app.config.Middleware.CORSEnabled {
		app.router.Use(middleware.CORSMiddleware(app.config.Middleware.CORSOrigins))
	}

	app.router.Use(middleware.NewMetrics(prometheus.DefaultRegisterer).Middleware())

	// the service is only injected when auth is on, so every check passes otherwise
	app.router.Use(authorization.InjectService(app.auth, app.config.AuthEnabled))
}

func (app *App) setupStaticRoutes() {
	app.router.Static("/static", "./static")
	if app.storage != nil && strings.EqualFold(app.config.StorageProvider, "local") && strings.HasPrefix(app.config.StorageBaseURL, "/") {
		app.router.Static(app.config.StorageBaseURL, app.storage.DefaultPath())
	}
}

func (app *App) initWebSocket() {
	if !app.config.WebSocketEnabled {
		return
	}

	app.wsHub = websocket.InitWebSocketModule(app.api, app.emitter, app.logger)

	if app.verbose {
		app.logger.Info("WebSocket initialized")
	}
}

func (app *App) dependencies() module.Dependencies {
	deps := module.Dependencies{
		DB:       app.db.DB,
		Logger:   app.logger,
		Emitter:  app.emitter,
		Storage:  app.storage,
		Config:   app.config,
		Datasets: app.datasets,
	}
	if app.api != nil {
		deps.Router = app.api
	}
	return deps
}

// autoDiscoverModules initializes core modules, then app modules
func (app *App) autoDiscoverModules() *App {
	deps := app.dependencies()
	initializer := module.NewInitializer(app.logger)

	coreProvider := coremodules.NewCoreModules(app.registry, app.auth, appmodules.ActivityEvents())
	core, err := module.NewCoreOrchestrator(initializer, coreProvider).InitializeCoreModules(deps)
	if err != nil {
		app.logger.Error("Failed to initialize core modules", logger.String("error", err.Error()))
	}

	appProvider := appmodules.NewAppModules(app.registry, app.upstream)
	initialized, err := module.NewAppOrchestrator(initializer, appProvider).InitializeAppModules(deps)
	if err != nil {
		app.logger.Error("Failed to initialize app modules", logger.String("error", err.Error()))
	}

	if app.verbose {
		app.logger.Info("Modules initialized",
			logger.Int("core", len(core)),
			logger.Int("app", len(initialized)))
	}

	return app
}

// tables returns the table service of the initialized tables module
func (app *App) tables() (*tables.TableService, error) {
	mod, ok := module.GetModule("tables")
	if !ok {
		return nil, errors.New("tables module is not initialized")
	}
	tm, ok := mod.(*tables.Module)
	if !ok {
		return nil, errors.New("unexpected tables module type")
	}
	return tm.Service, nil
}

// initJobs registers and starts the cron jobs
func (app *App) initJobs() *App {
	service, err := app.tables()
	if err != nil {
		app.logger.Error("Scheduler not started", logger.String("error", err.Error()))
		return app
	}

	app.scheduler = jobs.SetupScheduler(app.config, service, app.logger)
	app.scheduler.Start()
	return app
}

// setupRoutes sets up the system routes
func (app *App) setupRoutes() *App {
	app.router.GET("/health", func(c *router.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  app.config.Version,
			"datasets": app.datasets.Counts(),
		})
	})

	metrics := promhttp.Handler()
	app.router.GET("/metrics", func(c *router.Context) error {
		metrics.ServeHTTP(c.Writer, c.Request)
		return nil
	})

	if app.scheduler != nil {
		app.api.GET("/jobs", func(c *router.Context) error {
			return c.JSON(http.StatusOK, app.scheduler.Status())
		}, authorization.HasPermission("sync", "list"))
	}

	app.router.GET("/", func(c *router.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"message": "pong",
			"version": app.config.Version,
		})
	})

	app.router.NotFound(func(c *router.Context) error {
		return c.JSON(http.StatusNotFound, map[string]any{
			"error": "Not found",
		})
	})

	return app
}

// displayServerInfo shows server startup information
func (app *App) displayServerInfo() *App {
	localIP := app.getLocalIP()
	port := app.config.ServerPort

	fmt.Printf("\n\033[1;32mBack-office API ready!\033[0m\n\n")
	fmt.Printf("\033[36mServer URLs:\033[0m\n")
	fmt.Printf("  Local:   http://localhost%s\n", port)
	fmt.Printf("  Network: http://%s%s\n\n", localIP, port)
	fmt.Printf("\033[36mTables:\033[0m %d loaded\n\n", len(app.datasets.Tags()))

	return app
}

func (app *App) getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return "localhost"
}

// run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully
func (app *App) run() error {
	app.running = true
	port := app.config.ServerPort

	if app.verbose {
		app.logger.Info("Server starting", logger.String("port", port))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.router.Run(port)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		app.Stop()
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "address already in use") {
			app.logger.Error("Server failed to start - Port already in use",
				logger.String("port", port),
				logger.String("error", err.Error()))
			return fmt.Errorf("port %s is already in use. Stop the other server or change SERVER_PORT in your .env file", port)
		}
		app.logger.Error("Server failed to start", logger.String("error", err.Error()))
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.router.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Server shutdown failed", logger.String("error", err.Error()))
	}
	app.Stop()
	return nil
}

// Stop releases the scheduler, websocket hub, caches and database
func (app *App) Stop() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.wsHub != nil {
		app.wsHub.Close()
	}
	if app.datasets != nil {
		app.datasets.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	app.running = false
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\n\033[31m%v\033[0m\n\n", err)
		os.Exit(1)
	}
}
