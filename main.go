package main

import (
	"context"
	"log"
	"os"

	"github.com/example/task-tracker-api/config"
	"github.com/example/task-tracker-api/modules/activity"
	"github.com/example/task-tracker-api/modules/api"
	"github.com/example/task-tracker-api/modules/auth"
	"github.com/example/task-tracker-api/modules/cache"
	"github.com/example/task-tracker-api/modules/task"
	"github.com/example/task-tracker-api/storage"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	ctx := context.Background()

	backend, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}

	modules := []mono.Module{storage.NewModule(backend, app.Logger())}

	var statsCache task.StatsCache
	if cfg.Cache.Enabled() {
		cacheModule := cache.NewModule(cfg.Cache, app.Logger())
		statsCache = cacheModule.Cache()
		modules = append(modules, cacheModule)
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey: cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		TTL:       cfg.JWT.TTL,
	})

	modules = append(modules,
		activity.NewModule(activity.DefaultLimit, app.Logger()),
		auth.NewModule(backend.Users, auth.NewPasswordHasher(cfg.BcryptCost), jwtManager, app.Logger()),
		task.NewModule(backend.Tasks, statsCache, app.Logger()),
		api.NewModule(api.Config{Port: cfg.Port, RequestTimeout: cfg.RequestTimeout}, app.Logger()),
	)

	for _, m := range modules {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register %s module: %v", m.Name(), err)
		}
	}

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg *config.Config) {
	log.Println("=== Task Tracker API Started ===")
	log.Printf("Environment: %s", cfg.Env)
	log.Printf("Storage: %s", cfg.Storage.Driver)
	if cfg.Cache.Enabled() {
		log.Printf("Stats cache: redis at %s (TTL %s)", cfg.Cache.RedisAddr, cfg.Cache.TTL)
	} else {
		log.Println("Stats cache: disabled")
	}
	if cfg.JWT.Ephemeral {
		log.Println("Warning: JWT_SECRET not set, using a random development secret; tokens will not survive a restart")
	}
	log.Printf("HTTP server: http://localhost:%d", cfg.Port)
	log.Println("")
	log.Println("Endpoints:")
	log.Println("  POST   /auth/register  - Create an account")
	log.Println("  POST   /auth/login     - Exchange credentials for a bearer token")
	log.Println("  GET    /auth/me        - Current account (auth)")
	log.Println("  POST   /tasks          - Create a task (auth)")
	log.Println("  GET    /tasks          - List own tasks (auth)")
	log.Println("  GET    /tasks/stats    - Count own tasks by status (auth)")
	log.Println("  GET    /tasks/:id      - Get a task (auth)")
	log.Println("  PUT    /tasks/:id      - Update a task (auth)")
	log.Println("  DELETE /tasks/:id      - Delete a task (auth)")
	log.Println("  GET    /activity       - Recent account and task events (auth)")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")
}
