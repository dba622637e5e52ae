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

func main() {
	// persistent variant: load config, open the database, create the schema, serve
	cfg, err := config.Load(config.Default(":8080"))
	log := logger.New("todo-api", cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	db, err := database.Open(cfg.Driver, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}

	opts := []todo.Option{todo.WithDriver(cfg.Driver)}
	if cfg.SeedDemo {
		opts = append(opts, todo.WithDemoData())
	}
	store := todo.NewStore(db, opts...)
	if err := store.Init(context.Background()); err != nil {
		log.WithError(err).Fatal("schema init failed")
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: server.NewRouter(server.Options{
			Todos:        store,
			Stats:        stats.NewStore(db),
			Logger:       log,
			CORSAllowAll: cfg.CORSAllowAll,
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
