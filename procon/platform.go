// Package procon drives the haptics of a Nintendo Switch 2 Pro Controller
// on Linux. Discrete feedback goes out as rumble reports on the USB bulk
// endpoint; parameterized events and patterns are rendered into frames and
// streamed to the hidraw node.
package procon

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/google/gousb"

	"procon2-haptics/haptics"
)

const VendorID = 0x057E

// DefaultProducts are the product IDs accepted when none are configured
var DefaultProducts = []uint16{0x2009, 0x2019, 0x2069}

// Config selects the device and tunes playback
type Config struct {
	Vendor     uint16
	Products   []uint16
	ConfigNum  int
	Interface  int
	PlayerLED  int
	HidrawPath string // overrides sysfs discovery
	Playback   PlayerConfig
}

// Platform is the haptics.Platform backed by the first matching controller.
// A Platform without a controller reports no capabilities.
type Platform struct {
	cfg    Config
	logger *slog.Logger

	ctx     *gousb.Context
	dev     *gousb.Device
	ctrl    *Controller
	bus     int
	addr    int
	hidPath string
	gen     *Generator
}

var _ haptics.Platform = (*Platform)(nil)

// Open scans USB for a controller and initializes it. Not finding one is
// not an error.
func Open(cfg Config, logger *slog.Logger) (*Platform, error) {
	if cfg.Vendor == 0 {
		cfg.Vendor = VendorID
	}
	if len(cfg.Products) == 0 {
		cfg.Products = DefaultProducts
	}
	if cfg.ConfigNum == 0 {
		cfg.ConfigNum = 1
	}
	if cfg.Playback.FrameInterval <= 0 {
		cfg.Playback.FrameInterval = 4 * ms
	}
	if cfg.Playback.TransientLength <= 0 {
		cfg.Playback.TransientLength = 20 * ms
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Platform{
		cfg:    cfg,
		logger: logger.With("backend", "procon"),
		ctx:    gousb.NewContext(),
	}

	devs, err := p.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(cfg.Vendor) && slices.Contains(cfg.Products, uint16(desc.Product))
	})
	if err != nil && len(devs) == 0 {
		p.ctx.Close()
		return nil, fmt.Errorf("scanning usb: %w", err)
	}
	if len(devs) == 0 {
		p.logger.Info("no controller found")
		return p, nil
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}

	dev := devs[0]
	if err := dev.SetAutoDetach(true); err != nil {
		p.logger.Debug("auto detach unavailable", "error", err)
	}
	if err := p.attach(dev); err != nil {
		p.logger.Warn("controller init failed", "error", err)
		dev.Close()
		return p, nil
	}
	return p, nil
}

func (p *Platform) attach(dev *gousb.Device) error {
	ctrl, err := NewController(dev, p.cfg.ConfigNum, p.cfg.Interface, p.logger)
	if err != nil {
		return err
	}
	if err := ctrl.SendInitSequence(); err != nil {
		ctrl.Close()
		return fmt.Errorf("init failed: %w", err)
	}
	if err := ctrl.SetPlayerLEDs(p.cfg.PlayerLED); err != nil {
		p.logger.Debug("setting player leds", "error", err)
	}

	p.dev = dev
	p.ctrl = ctrl
	p.bus, p.addr = dev.Desc.Bus, dev.Desc.Address
	p.hidPath = ctrl.HIDPath()
	if p.cfg.HidrawPath != "" {
		p.hidPath = p.cfg.HidrawPath
	}
	p.gen = newGenerator(ctrl, p.logger)
	p.logger.Info("controller attached",
		"bus", dev.Desc.Bus, "addr", dev.Desc.Address, "hidraw", p.hidPath)
	return nil
}

func (p *Platform) Capabilities() haptics.Capabilities {
	basic := p.ctrl != nil && p.ctrl.CanRumble()
	return haptics.Capabilities{
		Basic: basic,
		Core:  basic && p.hidPath != "",
	}
}

func (p *Platform) Generator() haptics.Generator {
	if p.gen == nil {
		return nil
	}
	return p.gen
}

func (p *Platform) NewEngine(onReset func()) (haptics.Engine, error) {
	path := p.refreshHidraw()
	if path == "" {
		return nil, fmt.Errorf("controller has no hidraw node")
	}
	return NewPlayer(path, p.cfg.Playback, onReset, p.logger), nil
}

// refreshHidraw looks the hidraw node up again when the one found at attach
// time is gone. The kernel hands out a new node when the controller's HID
// interface is rebound, e.g. after resume, while the USB address stays.
func (p *Platform) refreshHidraw() string {
	if p.cfg.HidrawPath != "" || p.bus == 0 {
		return p.hidPath
	}
	if p.hidPath != "" {
		if _, err := os.Stat(p.hidPath); err == nil {
			return p.hidPath
		}
	}
	path, err := HidrawForUSB(p.bus, p.addr)
	if err != nil {
		p.logger.Debug("hidraw lookup failed", "bus", p.bus, "addr", p.addr, "error", err)
		return p.hidPath
	}
	if path != p.hidPath {
		p.logger.Info("hidraw node changed", "old", p.hidPath, "new", path)
		p.hidPath = path
	}
	return path
}

// HidrawPath is the node the engine streams to, empty without one
func (p *Platform) HidrawPath() string {
	return p.hidPath
}

// Close lets pending rumble pulses finish, then releases the controller and
// the USB context. Call after the haptics façade has been shut down.
func (p *Platform) Close() error {
	if p.gen != nil {
		if err := p.gen.Close(); err != nil {
			p.logger.Debug("closing rumble generator", "error", err)
		}
	}
	if p.ctrl != nil {
		p.ctrl.Close()
	}
	if p.dev != nil {
		p.dev.Close()
	}
	return p.ctx.Close()
}
