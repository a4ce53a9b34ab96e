package env

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	fn := filepath.Join(t.TempDir(), "heating.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func newFlags() (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	dev := fs.String(KeyDevice, defaultConfig.Device, "")
	fs.Duration(KeyPoll, defaultConfig.PollInterval, "")
	return fs, dev
}

func TestLoadDefaults(t *testing.T) {
	fs, _ := newFlags()
	require.NoError(t, fs.Parse(nil))
	conf, err := Load("", fs)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB0", conf.Device)
	require.Equal(t, "mqtt://localhost:1883/heating/", conf.MQTTURL)
	require.Equal(t, 30*time.Second, conf.PollInterval)
}

func TestLoadPrecedence(t *testing.T) {
	fn := writeConfig(t, "device: tcp://mcu:2001\nmqtt: mqtt://broker/home/\npoll: 5s\n")

	fs, _ := newFlags()
	require.NoError(t, fs.Parse(nil))
	conf, err := Load(fn, fs)
	require.NoError(t, err)
	require.Equal(t, "tcp://mcu:2001", conf.Device)
	require.Equal(t, "mqtt://broker/home/", conf.MQTTURL)
	require.Equal(t, 5*time.Second, conf.PollInterval)

	t.Setenv("HEATING_DEVICE", "sim:")
	conf, err = Load(fn, fs)
	require.NoError(t, err)
	require.Equal(t, "sim:", conf.Device)

	fs, _ = newFlags()
	require.NoError(t, fs.Parse([]string{"-device", "/dev/ttyS0", "-poll", "1m"}))
	conf, err = Load(fn, fs)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS0", conf.Device)
	require.Equal(t, time.Minute, conf.PollInterval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"), nil)
	require.Error(t, err)
}

func TestLoadInvalidPoll(t *testing.T) {
	fn := writeConfig(t, "poll: 0s\n")
	_, err := Load(fn, nil)
	require.Error(t, err)
}
