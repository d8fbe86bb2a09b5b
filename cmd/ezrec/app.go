package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/config"
	"github.com/yok-tottii/EzRec/internal/i18n"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/notification"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/session"
	"github.com/yok-tottii/EzRec/internal/storage"
)

// App holds the engine and everything wired around it
type App struct {
	config    *config.Config
	log       *logger.Logger
	driver    audio.Driver
	store     *storage.Store
	engine    *recording.Engine
	presenter *notification.Presenter
}

func newStore(c *config.Config) (*storage.Store, error) {
	dir, err := c.GetStorageDir()
	if err != nil {
		return nil, fmt.Errorf("invalid storage dir: %w", err)
	}
	return storage.New(afero.NewOsFs(), dir), nil
}

func newApp(c *config.Config, log *logger.Logger) (*App, error) {
	snap := c.Clone()

	driver, err := audio.NewDriver(snap.Audio.Backend)
	if err != nil {
		return nil, err
	}

	store, err := newStore(c)
	if err != nil {
		driver.Close()
		return nil, err
	}

	lang := i18n.Resolve(snap.UILanguage)
	tr := i18n.NewDefaultTranslator(lang)
	if snap.Translations != "" {
		path, err := config.ExpandPath(snap.Translations)
		if err == nil {
			err = tr.LoadTranslationsFromFile(lang, path)
		}
		if err != nil {
			driver.Close()
			return nil, fmt.Errorf("invalid ui_translations: %w", err)
		}
	}

	var notifier notification.Notifier
	if snap.Notifications {
		notifier = notification.NewNotificationManager(tr.Translate("app.name"))
	}

	log.Info("Audio backend %s, recordings in %s, language %s", driver.Name(), store.Dir(), lang)

	return &App{
		config:    c,
		log:       log,
		driver:    driver,
		store:     store,
		engine:    recording.New(driver, store, engineConfig(snap), log),
		presenter: notification.NewPresenter(tr, notifier, snap.MinDuration()),
	}, nil
}

func engineConfig(c *config.Config) recording.Config {
	ec := recording.DefaultConfig()
	ec.MinDuration = c.MinDuration()

	latency := audio.LowLatency
	if c.Audio.Latency == "high" {
		latency = audio.HighStability
	}

	ec.Capture.DeviceID = c.Audio.CaptureDevice
	ec.Capture.ChunkSize = c.Audio.ChunkSize
	ec.Capture.Latency = latency
	ec.Playback.DeviceID = c.Audio.PlaybackDevice
	ec.Playback.ChunkSize = c.Audio.ChunkSize
	ec.Playback.Latency = latency
	return ec
}

// storageMode is read on every start so settings changes apply to the next
// recording
func (a *App) storageMode() session.Mode {
	mode, _ := session.ParseMode(a.config.Clone().Storage.Mode)
	return mode
}

// present prints an event and raises a toast for problems
func (a *App) present(out io.Writer, ev notification.Event) {
	if ev.Kind == notification.Progress {
		a.log.Debug("%s: %s", ev.Direction, a.presenter.Message(ev))
		return
	}

	msg, err := a.presenter.Present(ev)
	if err != nil {
		if errors.Is(err, notification.ErrUnsupported) {
			a.log.Debug("No desktop notifications: %v", err)
		} else {
			a.log.Warn("Failed to show notification: %v", err)
		}
	}
	fmt.Fprintln(out, msg)
}

// Close stops the engine and releases the audio backend
func (a *App) Close() {
	a.engine.Shutdown()
	for range a.engine.Events() {
	}
	if err := a.driver.Close(); err != nil {
		a.log.Warn("Failed to close audio backend: %v", err)
	}
}
