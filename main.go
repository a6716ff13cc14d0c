package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"Meridian/Alerts"
	"Meridian/Config"
	"Meridian/CronJobs"
	"Meridian/FiberConfig"
	"Meridian/Logging"
	"Meridian/Models"
	"Meridian/Planner"
	"Meridian/Slack"
	"Meridian/Store"
	"Meridian/email"
	"Meridian/middleware"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	logger, err := Logging.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *Config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Models.Connect(cfg.DBDriver, cfg.DBDSN); err != nil {
		return err
	}
	middleware.SecretKey = cfg.JWTSecret

	catalog, err := Config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	store := Store.New(Models.DB)

	engineOpts := []Planner.Option{Planner.WithLogger(logger.Named("planner"))}
	var slackNotifier *Slack.Notifier
	if cfg.SlackEnabled() {
		slackNotifier = Slack.NewNotifier(cfg.SlackToken, cfg.SlackChannel, logger.Named("slack"))
		engineOpts = append(engineOpts, Planner.WithNotifier(slackNotifier))
		defer slackNotifier.Wait()
	}
	engine := Planner.NewEngine(store, engineOpts...)

	if cfg.EnableCron {
		scheduler := newScheduler(ctx, cfg, store, slackNotifier, logger)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if cfg.SlackCommandsEnabled() {
		commands := &Slack.Commands{Engine: engine, Users: func(ctx context.Context, address string) (*Models.User, error) {
			var user Models.User
			if err := Models.DB.WithContext(ctx).Where("email = ?", address).First(&user).Error; err != nil {
				return nil, err
			}
			return &user, nil
		}}
		go func() {
			if err := Slack.Listen(ctx, cfg.SlackToken, cfg.SlackAppToken, cfg.SlackChannel, commands, logger.Named("slack")); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("slack listener stopped", zap.Error(err))
			}
		}()
	}

	app := FiberConfig.NewApp(FiberConfig.Deps{
		DB:           Models.DB,
		Store:        store,
		Engine:       engine,
		Catalog:      catalog,
		Log:          logger.Named("http"),
		LogDir:       cfg.LogDir,
		TemplatesDir: cfg.TemplatesDir,
	})

	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("server up", zap.String("port", cfg.Port), zap.String("db", cfg.DBDriver))
	return app.Listen(":" + cfg.Port)
}

func newScheduler(ctx context.Context, cfg *Config.Config, store *Store.GormStore, slackNotifier *Slack.Notifier, logger *zap.Logger) *CronJobs.Scheduler {
	var opts []CronJobs.Option
	if slackNotifier != nil {
		opts = append(opts, CronJobs.WithStaleReporter(slackNotifier))
	}

	if cfg.FirebaseCredentials != "" {
		pusher, err := Alerts.InitFirebase(ctx, cfg.FirebaseCredentials, logger.Named("fcm"))
		if err != nil {
			logger.Error("push reminders disabled", zap.Error(err))
		} else {
			opts = append(opts, CronJobs.WithPusher(pusher))
		}
	}

	if cfg.SMTPEnabled() && len(cfg.DigestTo) > 0 {
		sender := email.SMTPSender{Config: email.Config{
			SMTPServer: cfg.SMTPHost,
			SMTPPort:   cfg.SMTPPort,
			Username:   cfg.SMTPUser,
			Password:   cfg.SMTPPassword,
			FromEmail:  cfg.SMTPFrom,
			FromName:   "Meridian",
			TLSEnabled: cfg.SMTPPort == 465,
		}}
		views := FiberConfig.Views(cfg.TemplatesDir)
		if err := views.Load(); err != nil {
			logger.Error("manager digest disabled", zap.Error(err))
		} else {
			opts = append(opts, CronJobs.WithDigestMailer(func(ctx context.Context, d email.Digest) error {
				return email.SendDigest(ctx, sender, views, cfg.DigestTo, d)
			}))
		}
	}

	return CronJobs.NewScheduler(store, logger.Named("cron"), opts...)
}
