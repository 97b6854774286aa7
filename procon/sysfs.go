package procon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Roots of the kernel trees, swapped out in tests
var (
	sysfsRoot = "/sys"
	devRoot   = "/dev"
)

// maxUSBDepth is how far above a hidraw device the owning USB device may sit
const maxUSBDepth = 6

// HidrawForUSB returns the /dev node of the hidraw interface that belongs to
// the USB device at bus/addr.
func HidrawForUSB(bus, addr int) (string, error) {
	class := filepath.Join(sysfsRoot, "class", "hidraw")
	entries, err := os.ReadDir(class)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", class, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "hidraw") {
			continue
		}
		b, a, ok := owningUSBDevice(filepath.Join(class, name, "device"))
		if ok && b == bus && a == addr {
			return filepath.Join(devRoot, name), nil
		}
	}
	return "", fmt.Errorf("no hidraw node on usb bus %d address %d", bus, addr)
}

// owningUSBDevice resolves a hidraw device link and climbs to the nearest
// directory that carries busnum and devnum.
func owningUSBDevice(link string) (bus, addr int, ok bool) {
	dir, err := filepath.EvalSymlinks(link)
	if err != nil {
		return 0, 0, false
	}
	for range maxUSBDepth {
		b, errB := readSysfsInt(filepath.Join(dir, "busnum"))
		a, errA := readSysfsInt(filepath.Join(dir, "devnum"))
		if errB == nil && errA == nil {
			return b, a, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return 0, 0, false
}

func readSysfsInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
