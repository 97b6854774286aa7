package procon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs builds a minimal sysfs with one hidraw node under a USB device
func fakeSysfs(t *testing.T, bus, addr string) string {
	t.Helper()
	root := t.TempDir()

	usbDev := filepath.Join(root, "devices", "usb1", "1-1")
	hidDev := filepath.Join(usbDev, "1-1:1.1", "0003:057E:2069.0001")
	node := filepath.Join(hidDev, "hidraw", "hidraw3")
	require.NoError(t, os.MkdirAll(node, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "busnum"), []byte(bus+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(usbDev, "devnum"), []byte(addr+"\n"), 0o644))
	require.NoError(t, os.Symlink("../..", filepath.Join(node, "device")))

	class := filepath.Join(root, "class", "hidraw")
	require.NoError(t, os.MkdirAll(class, 0o755))
	require.NoError(t, os.Symlink(node, filepath.Join(class, "hidraw3")))
	require.NoError(t, os.Symlink(hidDev, filepath.Join(class, "not-hidraw")))

	return root
}

func withSysfs(t *testing.T, root string) {
	t.Helper()
	oldSys, oldDev := sysfsRoot, devRoot
	sysfsRoot, devRoot = root, "/dev"
	t.Cleanup(func() { sysfsRoot, devRoot = oldSys, oldDev })
}

func TestHidrawForUSB(t *testing.T) {
	withSysfs(t, fakeSysfs(t, "1", "5"))

	path, err := HidrawForUSB(1, 5)
	require.NoError(t, err)
	assert.Equal(t, "/dev/hidraw3", path)
}

func TestHidrawForUSB_NoMatch(t *testing.T) {
	withSysfs(t, fakeSysfs(t, "1", "5"))

	_, err := HidrawForUSB(2, 5)
	assert.Error(t, err)
}

func TestHidrawForUSB_MissingClass(t *testing.T) {
	withSysfs(t, t.TempDir())

	_, err := HidrawForUSB(1, 1)
	assert.Error(t, err)
}
