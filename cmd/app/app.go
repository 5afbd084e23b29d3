package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/gomail.v2"
	tele "gopkg.in/telebot.v3"

	"github.com/vinylhub/eventsync/internal/adapters/auth"
	"github.com/vinylhub/eventsync/internal/adapters/config"
	"github.com/vinylhub/eventsync/internal/adapters/controller/rest"
	"github.com/vinylhub/eventsync/internal/adapters/database/store"
	"github.com/vinylhub/eventsync/internal/adapters/notifier"
	"github.com/vinylhub/eventsync/internal/adapters/notifier/email"
	"github.com/vinylhub/eventsync/internal/adapters/notifier/memory"
	"github.com/vinylhub/eventsync/internal/adapters/notifier/telegram"
	"github.com/vinylhub/eventsync/internal/domain/service"
	"github.com/vinylhub/eventsync/internal/domain/utils/location"
	"github.com/vinylhub/eventsync/pkg/logger"
	"github.com/vinylhub/eventsync/pkg/logger/types"
	"github.com/vinylhub/eventsync/pkg/smtp"
)

// backend is what both notification backends offer: the scheduler port plus Due for the dispatcher.
type backend interface {
	service.NotificationBackend
	notifier.Source
}

// App owns one instance of every component, built once at start.
type App struct {
	Config        *config.Config
	Session       *auth.Session
	Events        *service.EventService
	Scheduler     *service.NotificationScheduler
	Subscriptions *service.SubscriptionService
	Dispatcher    *notifier.Dispatcher

	cron   *cron.Cron
	server *http.Server
	logger *types.Logger
}

func New(cfg *config.Config) (*App, error) {
	settings := cfg.Settings
	appLogger, err := logger.Named("app")
	if err != nil {
		return nil, err
	}
	schedulerLogger, err := logger.Named("scheduler")
	if err != nil {
		return nil, err
	}
	subscriptionsLogger, err := logger.Named("subscriptions")
	if err != nil {
		return nil, err
	}
	dispatcherLogger, err := logger.Named("dispatcher")
	if err != nil {
		return nil, err
	}
	httpLogger, err := logger.Named("http")
	if err != nil {
		return nil, err
	}

	var notifications backend = memory.New()
	var sessionStore auth.Store
	if cfg.Redis != nil {
		sessionStore = cfg.Redis.Sessions
		if settings.Notifications.Backend == "redis" {
			notifications = cfg.Redis.Pending
		}
	}

	eventStorage := store.NewEventStorage(cfg.Database)
	subscriptionStorage := store.NewSubscriptionStorage(cfg.Database)

	a := &App{
		Config:  cfg,
		Session: auth.NewSession(sessionStore, appLogger),
		logger:  appLogger,
	}
	a.Events = service.NewEventService(eventStorage, settings.SoonWindow, settings.UpcomingLimit)
	a.Scheduler = service.NewNotificationScheduler(notifications, a.Events, settings.Notifications.CallTimeout, schedulerLogger)
	a.Subscriptions = service.NewSubscriptionService(a.Session, a.Events, subscriptionStorage, a.Scheduler, subscriptionsLogger)
	a.Session.AddListener(a.Subscriptions)

	senders, err := a.senders(settings.Notifications, dispatcherLogger)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = notifier.NewDispatcher(notifications, settings.Notifications.DispatchInterval, dispatcherLogger, senders...)

	loc, err := location.Load(settings.Timezone)
	if err != nil {
		return nil, err
	}
	a.cron = cron.New(cron.WithLocation(loc))
	if _, err := a.cron.AddFunc(settings.ReconcileSchedule, a.reconcile); err != nil {
		return nil, fmt.Errorf("settings.reconcile-schedule: %w", err)
	}

	a.server = &http.Server{
		Addr:              settings.HTTP.Listen,
		Handler:           rest.NewHandler(a.Scheduler, a.Subscriptions, httpLogger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) senders(settings config.NotificationSettings, dispatcherLogger *types.Logger) ([]notifier.Sender, error) {
	var senders []notifier.Sender

	if settings.Telegram.Token != "" {
		bot, err := tele.NewBot(tele.Settings{Token: settings.Telegram.Token, Offline: true})
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		if settings.Telegram.ChatID != 0 {
			senders = append(senders, telegram.NewSender(bot, settings.Telegram.ChatID, dispatcherLogger))
		}
		if settings.Telegram.LogChannelID != 0 {
			var level zapcore.Level
			if err := level.UnmarshalText([]byte(settings.Telegram.LogLevel)); err != nil {
				return nil, fmt.Errorf("notifications.telegram.log-level: %w", err)
			}
			logger.SetLogHook(telegram.LogHook(bot, settings.Telegram.LogChannelID, level, a.logger))
		}
	}

	if settings.SMTP.Enabled {
		dialer := gomail.NewDialer(settings.SMTP.Host, settings.SMTP.Port, settings.SMTP.User, settings.SMTP.Password)
		client := smtp.NewClient(dialer, settings.SMTP.From, settings.SMTP.Domain)
		senders = append(senders, email.NewSender(client, settings.SMTP.To))
	}
	return senders, nil
}

// Run restores the session, reconciles reminders and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	now := time.Now().UTC()
	userID, ok, err := a.Session.Restore(ctx)
	if err != nil {
		a.logger.Errorf("failed to restore session: %v", err)
	}
	switch {
	case ok:
		a.Subscriptions.OnLogin(ctx, userID, now)
	case a.Config.Settings.Session.UserID != 0:
		if err := a.Session.Login(ctx, a.Config.Settings.Session.UserID, now); err != nil {
			return err
		}
	default:
		a.logger.Info("No active user, reminders stay empty until sign-in")
	}

	a.Dispatcher.Start(ctx)
	a.cron.Start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			a.shutdown()
			return err
		}
	}
	a.shutdown()
	return nil
}

func (a *App) reconcile() {
	ctx := context.Background()
	if _, ok := a.Session.UserID(); !ok {
		return
	}
	if _, err := a.Subscriptions.Reconcile(ctx, time.Now().UTC()); err != nil {
		a.logger.Errorf("periodic reconcile: %v", err)
	}
}

func (a *App) shutdown() {
	a.logger.Info("Shutting down")
	<-a.cron.Stop().Done()
	a.Dispatcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Errorf("failed to shut down http server: %v", err)
	}
	if a.Config.Redis != nil {
		_ = a.Config.Redis.Close()
	}
	if sqlDB, err := a.Config.Database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
