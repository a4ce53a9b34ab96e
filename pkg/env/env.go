// Package env provides configuration shared by heatctl and heatd.
package env

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/robotalks/heating.go/pkg/mcu"
	"github.com/robotalks/heating.go/pkg/transport"
)

// Config provides common options.
type Config struct {
	// Device is the device URL, see transport.Parse.
	Device string
	// MQTTURL specifies the broker used by the bridge.
	// e.g. mqtt://host:port/topic-prefix
	MQTTURL string
	// PollInterval is how often the bridge publishes the MCU status.
	PollInterval time.Duration
	// ClientID overrides the MQTT client ID.
	ClientID string
}

// Config keys, also used as YAML keys and HEATING_* env vars.
const (
	KeyDevice   = "device"
	KeyMQTT     = "mqtt"
	KeyPoll     = "poll"
	KeyClientID = "client-id"
)

var (
	defaultConfig = Config{
		Device:       "/dev/ttyUSB0",
		MQTTURL:      "mqtt://localhost:1883/heating/",
		PollInterval: 30 * time.Second,
	}

	flagValues Config
	configFile string
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("heating")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyDevice, defaultConfig.Device)
	v.SetDefault(KeyMQTT, defaultConfig.MQTTURL)
	v.SetDefault(KeyPoll, defaultConfig.PollInterval)
	v.SetDefault(KeyClientID, defaultConfig.ClientID)
	return v
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "Config file (YAML).")
	flag.StringVar(&flagValues.Device, KeyDevice, defaultConfig.Device, "MCU device: path, serial://, tcp://, ws:// or sim: URL.")
	flag.StringVar(&flagValues.MQTTURL, KeyMQTT, defaultConfig.MQTTURL, "MQTT broker URL.")
	flag.DurationVar(&flagValues.PollInterval, KeyPoll, defaultConfig.PollInterval, "Status poll interval.")
	flag.StringVar(&flagValues.ClientID, KeyClientID, defaultConfig.ClientID, "MQTT client ID.")
}

// NewConfig loads the config with precedence flag > env > file > default.
func NewConfig() (*Config, error) {
	return Load(configFile, flag.CommandLine)
}

// Load loads the config from an explicit file (optional) and a parsed
// flag set. Only flags set on the command line override other sources.
func Load(file string, flags *flag.FlagSet) (*Config, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("heating")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "heating"))
		}
		v.AddConfigPath("/etc/heating")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	conf := &Config{
		Device:       v.GetString(KeyDevice),
		MQTTURL:      v.GetString(KeyMQTT),
		PollInterval: v.GetDuration(KeyPoll),
		ClientID:     v.GetString(KeyClientID),
	}
	if flags != nil {
		flags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case KeyDevice:
				conf.Device = f.Value.String()
			case KeyMQTT:
				conf.MQTTURL = f.Value.String()
			case KeyPoll:
				if g, ok := f.Value.(flag.Getter); ok {
					conf.PollInterval = g.Get().(time.Duration)
				}
			case KeyClientID:
				conf.ClientID = f.Value.String()
			}
		})
	}
	if conf.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid poll interval: %v", conf.PollInterval)
	}
	return conf, nil
}

// Dial opens the configured device.
func (c *Config) Dial() (*mcu.Client, error) {
	return transport.Dial(c.Device)
}
