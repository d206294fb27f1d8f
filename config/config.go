// Package config loads peripheral settings and GATT profiles from
// YAML and turns them into Device options and services.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/XC-/peripheral"
	"github.com/XC-/peripheral/event"
	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel             string        `yaml:"log_level" default:"info"`
	Name                 string        `yaml:"name" default:"gattsim"`
	PrepareQueueCapacity int           `yaml:"prepare_queue_capacity" default:"16"`
	EventBufferSize      uint32        `yaml:"event_buffer_size" default:"256"`
	StartTimeout         time.Duration `yaml:"start_timeout" default:"5s"`
	Advertising          Advertising   `yaml:"advertising"`
	Services             []Service     `yaml:"services"`
}

// Advertising configures the advertisement.
type Advertising struct {
	Mode             string   `yaml:"mode" default:"legacy"` // legacy, set
	Connectable      bool     `yaml:"connectable" default:"true"`
	LocalName        string   `yaml:"local_name"`
	ServiceUUIDs     []string `yaml:"service_uuids"`
	ManufacturerData string   `yaml:"manufacturer_data"` // hex
	Interval         uint16   `yaml:"interval"`          // set mode, 0.625 ms units
	TxPower          int8     `yaml:"tx_power"`          // set mode, dBm
}

// Service is a service in a profile.
type Service struct {
	UUID            string           `yaml:"uuid"`
	Secondary       bool             `yaml:"secondary"`
	Characteristics []Characteristic `yaml:"characteristics"`
}

// Characteristic is a characteristic in a profile. Value is text and
// ValueHex raw bytes; with neither set the characteristic is dynamic.
type Characteristic struct {
	UUID        string       `yaml:"uuid"`
	Properties  []string     `yaml:"properties"`
	Permissions []string     `yaml:"permissions"`
	Value       string       `yaml:"value"`
	ValueHex    string       `yaml:"value_hex"`
	Descriptors []Descriptor `yaml:"descriptors"`
}

// Descriptor is a descriptor in a profile.
type Descriptor struct {
	UUID        string   `yaml:"uuid"`
	Permissions []string `yaml:"permissions"`
	Value       string   `yaml:"value"`
	ValueHex    string   `yaml:"value_hex"`
}

var properties = map[string]ble.Property{
	"broadcast":              ble.CharBroadcast,
	"read":                   ble.CharRead,
	"write_without_response": ble.CharWriteNR,
	"write":                  ble.CharWrite,
	"notify":                 ble.CharNotify,
	"indicate":               ble.CharIndicate,
	"signed_write":           ble.CharSignedWrite,
	"extended":               ble.CharExtended,
}

var permissions = map[string]peripheral.Permission{
	"read":            peripheral.PermRead,
	"write":           peripheral.PermWrite,
	"read_encrypted":  peripheral.PermReadEncrypted,
	"write_encrypted": peripheral.PermWriteEncrypted,
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads and validates the profile at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML profile over the defaults and validates it.
func Parse(b []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every field that is parsed later, so that Apply and
// AdvertisingConfig only fail on conflicts with the device.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.PrepareQueueCapacity <= 0 {
		return fmt.Errorf("prepare_queue_capacity must be positive, got %d", c.PrepareQueueCapacity)
	}
	if _, err := c.AdvertisingConfig(); err != nil {
		return err
	}
	for i, s := range c.Services {
		if _, err := peripheral.ParseUUID(s.UUID); err != nil {
			return fmt.Errorf("services[%d]: %w", i, err)
		}
		for j, ch := range s.Characteristics {
			if _, _, _, _, err := ch.parse(); err != nil {
				return fmt.Errorf("services[%d].characteristics[%d]: %w", i, j, err)
			}
			for k, d := range ch.Descriptors {
				if _, _, _, err := d.parse(); err != nil {
					return fmt.Errorf("services[%d].characteristics[%d].descriptors[%d]: %w", i, j, k, err)
				}
			}
		}
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// Options returns the Device options this configuration sets.
func (c *Config) Options(log *logrus.Logger, sink event.Sink) []peripheral.Option {
	return []peripheral.Option{
		peripheral.Name(c.Name),
		peripheral.Logger(log),
		peripheral.EventSink(sink),
		peripheral.PrepareQueueCapacity(c.PrepareQueueCapacity),
	}
}

// Apply adds the profile's services to d.
func (c *Config) Apply(d *peripheral.Device) error {
	for _, s := range c.Services {
		su, err := peripheral.ParseUUID(s.UUID)
		if err != nil {
			return err
		}
		if err := d.AddService(su, !s.Secondary); err != nil {
			return fmt.Errorf("service %s: %w", s.UUID, err)
		}
		for _, ch := range s.Characteristics {
			cu, props, perms, value, err := ch.parse()
			if err != nil {
				return err
			}
			if err := d.AddCharacteristic(su, cu, props, perms, value); err != nil {
				return fmt.Errorf("characteristic %s: %w", ch.UUID, err)
			}
			for _, desc := range ch.Descriptors {
				du, dperms, dvalue, err := desc.parse()
				if err != nil {
					return err
				}
				if err := d.AddDescriptor(su, cu, du, dperms, dvalue); err != nil {
					return fmt.Errorf("descriptor %s: %w", desc.UUID, err)
				}
			}
		}
	}
	return nil
}

// AdvertisingConfig converts the advertising section.
func (c *Config) AdvertisingConfig() (peripheral.AdvertisingConfig, error) {
	a := c.Advertising
	cfg := peripheral.AdvertisingConfig{LocalName: a.LocalName, Connectable: a.Connectable}
	switch strings.ToLower(a.Mode) {
	case "", "legacy":
		cfg.Mode = peripheral.Legacy{}
	case "set":
		cfg.Mode = peripheral.Set{Interval: a.Interval, TxPower: a.TxPower}
	default:
		return cfg, fmt.Errorf("advertising.mode: unknown mode %q", a.Mode)
	}
	for _, s := range a.ServiceUUIDs {
		u, err := peripheral.ParseUUID(s)
		if err != nil {
			return cfg, fmt.Errorf("advertising.service_uuids: %w", err)
		}
		cfg.ServiceUUIDs = append(cfg.ServiceUUIDs, u)
	}
	if a.ManufacturerData != "" {
		b, err := hex.DecodeString(a.ManufacturerData)
		if err != nil {
			return cfg, fmt.Errorf("advertising.manufacturer_data: %w", err)
		}
		cfg.ManufacturerData = b
	}
	return cfg, nil
}

func (ch Characteristic) parse() (ble.UUID, ble.Property, peripheral.Permission, []byte, error) {
	u, err := peripheral.ParseUUID(ch.UUID)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	var props ble.Property
	for _, p := range ch.Properties {
		v, ok := properties[strings.ToLower(p)]
		if !ok {
			return nil, 0, 0, nil, fmt.Errorf("unknown property %q", p)
		}
		props |= v
	}
	perms, err := parsePermissions(ch.Permissions)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	value, err := parseValue(ch.Value, ch.ValueHex)
	if err != nil {
		return nil, 0, 0, nil, err
	}
	return u, props, perms, value, nil
}

func (d Descriptor) parse() (ble.UUID, peripheral.Permission, []byte, error) {
	u, err := peripheral.ParseUUID(d.UUID)
	if err != nil {
		return nil, 0, nil, err
	}
	perms, err := parsePermissions(d.Permissions)
	if err != nil {
		return nil, 0, nil, err
	}
	value, err := parseValue(d.Value, d.ValueHex)
	if err != nil {
		return nil, 0, nil, err
	}
	return u, perms, value, nil
}

func parsePermissions(ss []string) (peripheral.Permission, error) {
	var perms peripheral.Permission
	for _, p := range ss {
		v, ok := permissions[strings.ToLower(p)]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", p)
		}
		perms |= v
	}
	return perms, nil
}

// parseValue returns nil when neither form is set.
func parseValue(text, hx string) ([]byte, error) {
	switch {
	case text != "" && hx != "":
		return nil, fmt.Errorf("value and value_hex are mutually exclusive")
	case hx != "":
		b, err := hex.DecodeString(hx)
		if err != nil {
			return nil, fmt.Errorf("value_hex: %w", err)
		}
		return b, nil
	case text != "":
		return []byte(text), nil
	}
	return nil, nil
}
