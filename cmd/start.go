package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"module-monitor/core/loader"
	"module-monitor/core/logger"
	"module-monitor/core/middleware/auth"
	"module-monitor/core/middleware/rayid"
	"module-monitor/core/server"
	"module-monitor/core/supervisor"
	"module-monitor/feature/catalog"
	"module-monitor/feature/health"
	"module-monitor/feature/inventory"
	"module-monitor/feature/sites"
	"module-monitor/feature/tasks"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "module-monitor/docs/swagger"
)

// @title Module Monitor API
// @version 1.0
// @description Inventory ingestion and update tracking for managed sites.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey SiteKeyAuth
// @in header
// @name X-Site-Key
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the module monitor server",
	Long:  `Starts the HTTP server and, unless disabled, the background sync worker and task sweeper.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()
		zap.ReplaceGlobals(rt.logger)

		app := newApp(rt)

		sup := supervisor.New("module-monitor", supervisor.DefaultConfig(), rt.logger)
		sup.Add(server.NewHTTPService(app, rt.cfg.Server, rt.logger))
		if rt.cfg.Worker.Enabled {
			sup.Add(rt.newWorker())
			sup.Add(rt.newSweeper())
		} else {
			rt.logger.Info("Background worker disabled; jobs wait for a worker process")
		}

		err = sup.Serve(ctx)
		rt.logger.Info("Shut down")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}

// newApp builds the fiber app with every feature registered.
func newApp(rt *runtime) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             rt.cfg.Server.BodyLimit(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	// RayID first so every log line below carries it.
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(rt.logger, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	siteGuard := sites.Middleware(rt.sites)
	adminGuard := auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey})

	mgr := loader.NewManager()
	mgr.Register(health.NewFeature(health.NewHandler(rt.db, rt.store, rt.logger)))
	mgr.Register(inventory.NewFeature(rt.service, siteGuard, rt.logger))
	mgr.Register(tasks.NewFeature(rt.tasks, siteGuard, rt.logger))
	mgr.Register(catalog.NewFeature(rt.catalog, adminGuard))

	if err := mgr.LoadAll(app); err != nil {
		rt.logger.Fatal("Failed to load features", zap.Error(err))
	}
	return app
}
