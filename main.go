package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/assets"
	"github.com/borgmon/alarm-clock/pkg/audio"
	"github.com/borgmon/alarm-clock/pkg/config"
	"github.com/borgmon/alarm-clock/pkg/database"
	"github.com/borgmon/alarm-clock/pkg/delivery"
	"github.com/borgmon/alarm-clock/pkg/kv"
	"github.com/borgmon/alarm-clock/pkg/logger"
	"github.com/borgmon/alarm-clock/pkg/metrics"
	"github.com/borgmon/alarm-clock/pkg/models"
	"github.com/borgmon/alarm-clock/pkg/platform"
	"github.com/borgmon/alarm-clock/pkg/store"
	"github.com/borgmon/alarm-clock/pkg/trigger"
)

const appID = "com.borgmon.alarmclock"

type AlarmClock struct {
	ctx        context.Context
	app        fyne.App
	configPath string
	config     models.Config
	background bool

	db          *sql.DB
	alarmStore  *store.AlarmStore
	scheduler   *trigger.Scheduler
	triggers    *trigger.Manager
	sound       *audio.Controller
	coordinator *delivery.Coordinator
	metrics     *metrics.Metrics
	quitGuard   *platform.QuitGuard

	setupWindow *SetupWindow
	ringWindow  *RingWindow

	logger *zap.SugaredLogger
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config.yaml")
	background := flag.Bool("background", false, "start with only the tray icon")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	log := logger.Initialize(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()
	if cfgErr != nil {
		log.Errorf("Using default config: %v", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ac := &AlarmClock{
		ctx:        ctx,
		app:        app.NewWithID(appID),
		configPath: *configPath,
		config:     cfg,
		background: *background,
		logger:     log,
	}

	if err := ac.initialize(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer ac.shutdown()

	ac.run()
}

func (ac *AlarmClock) initialize() error {
	ac.app.SetIcon(assets.Icon)

	db, err := database.Open(database.DefaultPath(ac.config.DataDir))
	if err != nil {
		return err
	}
	ac.db = db

	var backing kv.Store = kv.NewSQLite(db)
	if ac.config.StoreBackend == models.StoreBackendPreferences {
		backing = kv.NewPreferences(ac.app)
	}
	ac.alarmStore = store.NewAlarmStore(backing, logger.For("store"))

	ac.scheduler = trigger.NewScheduler(db, trigger.SystemClock, &notificationPresenter{app: ac.app}, logger.For("scheduler"))
	ac.triggers = trigger.NewManager(ac.scheduler, ac.scheduler, ac.config.ChannelID, logger.For("trigger"))

	ac.metrics = metrics.New()

	ac.sound = audio.NewController(audio.NewOtoBackend(assets.FS, logger.For("oto")), logger.For("audio"))
	ac.sound.SetStartVolume(ac.config.Volume)
	ac.sound.OnFailure(ac.metrics.PlaybackFailed)

	ac.coordinator = delivery.NewCoordinator(ac.alarmStore, ac.sound, ac.triggers, logger.For("delivery"),
		delivery.WithObserver(ac.metrics),
		delivery.WithFallbackSound(ac.config.FallbackSource()),
	)

	// Registered at process entry so triggers that fire with no window open,
	// or that came due while the process was not running, still ring.
	ac.triggers.SetBackgroundHandler(ac.coordinator.Handler(delivery.ChannelBackground))

	ac.quitGuard = platform.NewQuitGuard(logger.For("platform"))
	ac.ringWindow = NewRingWindow(ac.app, ac.coordinator, ac.quitGuard, ac.config.HoldToDismiss, logger.For("ring"))
	ac.coordinator.Subscribe(func(session models.Session, ringing bool) {
		if ringing {
			ac.ringWindow.Show(session)
		} else {
			ac.ringWindow.Hide()
		}
		fyne.Do(ac.updateSystemTrayMenu)
	})

	if err := ac.triggers.Initialize(ac.ctx); err != nil {
		ac.logger.Errorf("Error initializing alarm channel: %v", err)
	}

	if err := setupAutostart(ac.config.AutoStart, ac.logger); err != nil {
		ac.logger.Warnf("Failed to set up autostart: %v", err)
	}

	ac.metrics.Serve(ac.ctx, ac.config.MetricsAddr, logger.For("metrics"))
	ac.watchConfig()

	ac.setupSystemTray()
	if !ac.background {
		ac.showSetupWindow()
	}
	return nil
}

func (ac *AlarmClock) run() {
	ac.app.Lifecycle().SetOnStarted(func() {
		platform.SetBackgroundMode(ac.background)

		go func() {
			ac.sound.Init()
			if err := ac.scheduler.Start(ac.ctx); err != nil {
				ac.logger.Errorf("Error starting trigger scheduler: %v", err)
			}
			ac.coordinator.Reconcile(ac.ctx)
			fyne.Do(ac.updateSystemTrayMenu)

			if !ac.triggers.RequestPermissions(ac.ctx) {
				ac.logger.Warn("Alarm permissions not granted, alarms may not fire")
			}
		}()
	})

	ac.app.Lifecycle().SetOnEnteredForeground(func() {
		go ac.coordinator.Reconcile(ac.ctx)
	})

	go func() {
		<-ac.ctx.Done()
		fyne.Do(ac.app.Quit)
	}()

	ac.app.Run()
}

func (ac *AlarmClock) watchConfig() {
	w, err := config.NewWatcher(ac.configPath, ac.applyConfig, logger.For("config"))
	if err != nil {
		ac.logger.Warnf("Config changes will not be picked up: %v", err)
		return
	}
	go func() {
		w.Run(ac.ctx)
		_ = w.Close()
	}()
}

// applyConfig takes the settings that can change without a restart.
func (ac *AlarmClock) applyConfig(cfg models.Config) {
	ac.ringWindow.SetHoldDuration(cfg.HoldToDismiss)
	ac.sound.SetStartVolume(cfg.Volume)
	ac.sound.SetVolume(cfg.Volume)
	ac.coordinator.SetFallbackSound(cfg.FallbackSource())

	if cfg.AutoStart != ac.config.AutoStart {
		if err := setupAutostart(cfg.AutoStart, ac.logger); err != nil {
			ac.logger.Warnf("Failed to set up autostart: %v", err)
		}
	}

	fyne.Do(func() {
		ac.config.HoldToDismiss = cfg.HoldToDismiss
		ac.config.Volume = cfg.Volume
		ac.config.FallbackSound = cfg.FallbackSound
		ac.config.AutoStart = cfg.AutoStart
	})
}

func (ac *AlarmClock) showSetupWindow() {
	// If the window already exists, just bring it to front
	if ac.setupWindow != nil {
		ac.setupWindow.window.RequestFocus()
		ac.setupWindow.window.Show()
		return
	}

	platform.SetBackgroundMode(false)
	ac.setupWindow = NewSetupWindow(ac, func() {
		ac.setupWindow = nil
		if ac.background {
			platform.SetBackgroundMode(true)
		}
	})
	ac.setupWindow.Show()
}

func (ac *AlarmClock) quit() {
	if _, ringing := ac.coordinator.Session(); ringing {
		ac.logger.Info("Quit ignored while an alarm is ringing")
		return
	}
	ac.app.Quit()
}

func (ac *AlarmClock) shutdown() {
	ac.scheduler.Stop()
	ac.sound.Teardown()
	if err := ac.db.Close(); err != nil {
		ac.logger.Warnf("Error closing database: %v", err)
	}
}

// notificationPresenter posts fired triggers as desktop notifications.
type notificationPresenter struct {
	app fyne.App
}

func (p *notificationPresenter) Present(n trigger.Notification) {
	p.app.SendNotification(fyne.NewNotification(n.Title, n.Body))
}
