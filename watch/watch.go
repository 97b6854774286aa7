// Package watch turns platform interruptions into engine invalidations.
// Watchers run on their own goroutines and only ever call Invalidate.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/godbus/dbus/v5"
)

// Invalidator is satisfied by *haptics.Haptics
type Invalidator interface {
	Invalidate()
}

const (
	login1Manager   = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

// SleepWatcher invalidates the engine around system suspend, when the
// controller is powered down and re-enumerated.
type SleepWatcher struct {
	target Invalidator
	logger *slog.Logger
}

func NewSleepWatcher(target Invalidator, logger *slog.Logger) *SleepWatcher {
	return &SleepWatcher{target: target, logger: logger.With("watcher", "sleep")}
}

// Run listens on the system bus until ctx is done.
func (w *SleepWatcher) Run(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connecting system bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(login1Manager),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		return fmt.Errorf("subscribing to %s: %w", prepareForSleep, err)
	}

	signals := make(chan *dbus.Signal, 4)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	w.logger.Debug("watching for system sleep")
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			w.handle(sig)
		}
	}
}

func (w *SleepWatcher) handle(sig *dbus.Signal) {
	if sig == nil || sig.Name != login1Manager+"."+prepareForSleep || len(sig.Body) != 1 {
		return
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if sleeping {
		w.logger.Info("system suspending, invalidating haptic engine")
	} else {
		w.logger.Info("system resumed, invalidating haptic engine")
	}
	w.target.Invalidate()
}

// DeviceWatcher invalidates the engine when its hidraw node disappears or
// is recreated.
type DeviceWatcher struct {
	path   string
	target Invalidator
	logger *slog.Logger
	ready  chan struct{}
}

func NewDeviceWatcher(path string, target Invalidator, logger *slog.Logger) *DeviceWatcher {
	return &DeviceWatcher{
		path:   filepath.Clean(path),
		target: target,
		logger: logger.With("watcher", "device", "path", path),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the watch is in place
func (w *DeviceWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the node's directory until ctx is done.
func (w *DeviceWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("haptic device node changed", "op", event.Op.String())
			w.target.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("device watcher error", "error", err)
		}
	}
}
