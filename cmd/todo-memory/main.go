package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/yujing9528/go-todo-api/internal/config"
	"github.com/yujing9528/go-todo-api/internal/database"
	"github.com/yujing9528/go-todo-api/internal/logger"
	"github.com/yujing9528/go-todo-api/internal/server"
	"github.com/yujing9528/go-todo-api/internal/stats"
	"github.com/yujing9528/go-todo-api/internal/todo"
)

// Ephemeral variant for serverless hosts: SQLite in process memory, schema
// and demo rows created on the first request. Everything is lost on restart.
func main() {
	base := config.Default(":8080")
	base.DatabaseURL = database.MemoryDSN
	base.SeedDemo = true
	base.CORSAllowAll = true

	cfg, err := config.Load(base)
	log := logger.New("todo-memory", cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if cfg.Driver != "sqlite3" {
		log.WithField("driver", cfg.Driver).Fatal("todo-memory only runs on sqlite3")
	}

	db, err := database.Open(cfg.Driver, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("db open failed")
	}

	var opts []todo.Option
	if cfg.SeedDemo {
		opts = append(opts, todo.WithDemoData())
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.NewRouter(server.Options{
			Todos:        todo.NewStore(db, opts...),
			Stats:        stats.NewStore(db),
			Logger:       log,
			CORSAllowAll: cfg.CORSAllowAll,
			LazyInit:     true,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("shutting down")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return db.Close()
		},
	})
	os.Exit(<-wait)
}
