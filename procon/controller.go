package procon

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Controller is the USB side of a connected Pro Controller: bulk OUT for
// subcommands and rumble, interrupt/bulk IN drained during init.
type Controller struct {
	iface   *gousb.Interface
	cfg     *gousb.Config
	epOut   *gousb.OutEndpoint
	epIn    *gousb.InEndpoint
	hidPath string
	logger  *slog.Logger

	mu       sync.Mutex
	packetID byte
}

// NewController claims ifaceNum on an already open device and resolves its
// hidraw node.
func NewController(dev *gousb.Device, configNum, ifaceNum int, logger *slog.Logger) (*Controller, error) {
	cfg, intf, epOut, epIn, err := claimInterface(dev, configNum, ifaceNum)
	if err != nil {
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	bus := dev.Desc.Bus
	addr := dev.Desc.Address
	hidPath, err := HidrawForUSB(bus, addr)
	if err != nil {
		logger.Warn("could not find hidraw node", "bus", bus, "addr", addr, "error", err)
	}

	return &Controller{
		iface:   intf,
		cfg:     cfg,
		epOut:   epOut,
		epIn:    epIn,
		hidPath: hidPath,
		logger:  logger,
	}, nil
}

func (c *Controller) Close() error {
	if c.iface != nil {
		c.iface.Close()
	}
	if c.cfg != nil {
		return c.cfg.Close()
	}
	return nil
}

// HIDPath is empty when no hidraw node belongs to the device
func (c *Controller) HIDPath() string {
	return c.hidPath
}

// CanRumble reports whether an OUT endpoint was found
func (c *Controller) CanRumble() bool {
	return c.epOut != nil
}

// SetPlayerLEDs lights the LED for player 1-4
func (c *Controller) SetPlayerLEDs(playerNum int) error {
	var ledPattern byte
	switch playerNum {
	case 2:
		ledPattern = 0x02
	case 3:
		ledPattern = 0x04
	case 4:
		ledPattern = 0x08
	default:
		ledPattern = 0x01
	}
	return c.SendSubcommand(0x30, []byte{ledPattern})
}

// SendSubcommand sends output report 0x01 with neutral rumble
func (c *Controller) SendSubcommand(subcmd byte, data []byte) error {
	packet := make([]byte, 64)
	packet[0] = 0x01
	copy(packet[2:6], neutralBand[:])
	copy(packet[6:10], neutralBand[:])
	packet[10] = subcmd
	copy(packet[11:], data)
	return c.write(packet)
}

// SendRumble sends rumble-only output report 0x10 for both actuators
func (c *Controller) SendRumble(left, right Band) error {
	packet := make([]byte, 64)
	packet[0] = 0x10
	copy(packet[2:6], left[:])
	copy(packet[6:10], right[:])
	return c.write(packet)
}

// write stamps the rolling packet counter and sends the report
func (c *Controller) write(packet []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epOut == nil {
		return fmt.Errorf("output endpoint not connected")
	}
	c.packetID = (c.packetID + 1) & 0x0F
	packet[1] = c.packetID
	_, err := c.epOut.Write(packet)
	return err
}

// SendInitSequence wakes the controller's haptics and input reporting.
func (c *Controller) SendInitSequence() error {
	packets := [][]byte{
		{0x03, 0x91, 0x00, 0x0d, 0x00, 0x08, 0x00, 0x00, 0x01, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0x07, 0x91, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
		{0x16, 0x91, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
		{0x15, 0x91, 0x00, 0x01, 0x00, 0x0e, 0x00, 0x00, 0x00, 0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0x15, 0x91, 0x00, 0x02, 0x00, 0x11, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		{0x15, 0x91, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00},
		{0x09, 0x91, 0x00, 0x07, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x0c, 0x91, 0x00, 0x02, 0x00, 0x04, 0x00, 0x00, 0x27, 0x00, 0x00, 0x00},
		{0x11, 0x91, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00},
		{0x0a, 0x91, 0x00, 0x08, 0x00, 0x14, 0x00, 0x00, 0x01, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x35, 0x00, 0x46, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x0c, 0x91, 0x00, 0x04, 0x00, 0x04, 0x00, 0x00, 0x27, 0x00, 0x00, 0x00},
		{0x03, 0x91, 0x00, 0x0a, 0x00, 0x04, 0x00, 0x00, 0x09, 0x00, 0x00, 0x00},
		{0x10, 0x91, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00},
		{0x01, 0x91, 0x00, 0x0c, 0x00, 0x00, 0x00, 0x00},
		{0x03, 0x91, 0x00, 0x01, 0x00, 0x00, 0x00},
		{0x0a, 0x91, 0x00, 0x02, 0x00, 0x04, 0x00, 0x00, 0x03, 0x00, 0x00},
		{0x09, 0x91, 0x00, 0x07, 0x00, 0x08, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}

	if c.epOut == nil {
		return fmt.Errorf("output endpoint not connected")
	}

	c.logger.Debug("sending initialization sequence", "packets", len(packets))
	buf := make([]byte, 64)
	for i, p := range packets {
		if _, err := c.epOut.Write(p); err != nil {
			c.logger.Warn("init packet failed", "packet", i+1, "error", err)
		}
		time.Sleep(15 * time.Millisecond)

		// drain input so the device does not stall
		if c.epIn != nil {
			c.epIn.Read(buf)
		}
	}
	return nil
}

func claimInterface(dev *gousb.Device, configNum, ifaceNum int) (*gousb.Config, *gousb.Interface, *gousb.OutEndpoint, *gousb.InEndpoint, error) {
	cfg, err := dev.Config(configNum)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to open config %d: %w", configNum, err)
	}

	intf, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to claim interface %d: %w", ifaceNum, err)
	}

	var epOut *gousb.OutEndpoint
	var epIn *gousb.InEndpoint

	for _, e := range intf.Setting.Endpoints {
		if e.Direction == gousb.EndpointDirectionOut && e.TransferType == gousb.TransferTypeBulk {
			epOut, err = intf.OutEndpoint(e.Number)
			if err != nil {
				intf.Close()
				cfg.Close()
				return nil, nil, nil, nil, err
			}
		}
		if e.Direction == gousb.EndpointDirectionIn && (e.TransferType == gousb.TransferTypeInterrupt || e.TransferType == gousb.TransferTypeBulk) {
			epIn, err = intf.InEndpoint(e.Number)
			if err != nil {
				intf.Close()
				cfg.Close()
				return nil, nil, nil, nil, err
			}
		}
	}

	return cfg, intf, epOut, epIn, nil
}
