package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/config"
	"github.com/ray-remotestate/canteen/database"
	"github.com/ray-remotestate/canteen/database/dbhelper"
	"github.com/ray-remotestate/canteen/handlers"
	"github.com/ray-remotestate/canteen/notify"
	"github.com/ray-remotestate/canteen/server"
	"github.com/ray-remotestate/canteen/services"
	"github.com/ray-remotestate/canteen/storage"
)

func main() {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	cfg.SetupLogger()
	log := logrus.StandardLogger()

	ctx := context.Background()
	db, err := database.ConnectAndMigrate(ctx, cfg.DB.DSN())
	if err != nil {
		logrus.Panicf("failed to initialize database, error: %v", err)
	}
	logrus.Println("migration is successful")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.Panicf("failed to reach redis, error: %v", err)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		notifier = notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		logrus.WithField("topic", cfg.KafkaTopic).Info("publishing order events to kafka")
	}

	users := dbhelper.NewUserRepo(db)
	menu := dbhelper.NewMenuRepo(db)
	orders := dbhelper.NewOrderRepo(db)

	carts := services.NewCartService(storage.NewRedisStore(rdb, cfg.CartTTL), menu, log)
	h := &handlers.Handlers{
		Users:         services.NewUserService(users, carts, cfg.SecretKey, log),
		Menu:          services.NewMenuService(menu),
		Carts:         carts,
		Orders:        services.NewOrderService(orders, menu, users, carts, notifier, log),
		Log:           log,
		SecureCookies: cfg.SecureCookies,
	}

	if cfg.AdminEmail != "" {
		if err := h.Users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logrus.Panicf("failed to bootstrap admin, error: %v", err)
		}
	}

	srv := server.SetupRoutes(h, cfg.SecretKey, log)
	go func() {
		if err := srv.Run(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server stopped unexpectedly")
			done <- syscall.SIGTERM
		}
	}()
	logrus.WithField("port", cfg.Port).Info("server started")

	<-done

	logrus.Info("shutting down...")
	var errs *multierror.Error
	if err := srv.Shutdown(cfg.ShutdownTimeout); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := notifier.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := rdb.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := db.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		logrus.WithError(err).Error("failed to shut down cleanly")
		os.Exit(1)
	}

	logrus.Info("system is shut ..zzz")
}
