// Package config loads the settings shared by the bridge and the demo host:
// the operation server endpoint plus per-side tuning.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/zboralski/binja-mcp/internal/codec"
)

const (
	DefaultHost    = "localhost"
	DefaultPort    = 9009
	DefaultTimeout = 5 * time.Second

	DefaultPageLimit = 100
	MaxPageLimit     = 1000

	DefaultPath = "binja-mcp.toml"
)

// Environment overrides.
const (
	EnvHost    = "BINJA_MCP_HOST"
	EnvPort    = "BINJA_MCP_PORT"
	EnvSocket  = "BINJA_MCP_SOCKET"
	EnvTimeout = "BINJA_MCP_TIMEOUT"
)

// Duration decodes "5s"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Socket, when set, replaces host/port with a unix socket.
	Socket string `toml:"socket"`
	Codec  string `toml:"codec"`

	Bridge   Bridge   `toml:"bridge"`
	Analysis Analysis `toml:"analysis"`
}

type Bridge struct {
	Timeout      Duration `toml:"timeout"`
	DefaultLimit int      `toml:"default_limit"`
	MaxLimit     int      `toml:"max_limit"`
	Debug        bool     `toml:"debug"`
}

// Analysis configures the demo host.
type Analysis struct {
	Snapshot string   `toml:"snapshot"`
	Delay    Duration `toml:"delay"`
}

func Default() *Config {
	return &Config{
		Host:  DefaultHost,
		Port:  DefaultPort,
		Codec: codec.NameJSON,
		Bridge: Bridge{
			Timeout:      Duration{DefaultTimeout},
			DefaultLimit: DefaultPageLimit,
			MaxLimit:     MaxPageLimit,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is only an error when mustExist is set.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !mustExist:
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v, ok := lookup(EnvSocket); ok {
		c.Socket = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Bridge.Timeout = Duration{d}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Socket == "" {
		if c.Host == "" {
			return errors.New("host must not be empty")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("port %d out of range", c.Port)
		}
	}
	if _, err := codec.ByName(c.Codec); err != nil {
		return err
	}
	if c.Bridge.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Bridge.Timeout)
	}
	if c.Bridge.MaxLimit <= 0 {
		return fmt.Errorf("max_limit must be positive, got %d", c.Bridge.MaxLimit)
	}
	if c.Bridge.DefaultLimit <= 0 || c.Bridge.DefaultLimit > c.Bridge.MaxLimit {
		return fmt.Errorf("default_limit must be in 1..%d, got %d", c.Bridge.MaxLimit, c.Bridge.DefaultLimit)
	}
	if c.Analysis.Delay.Duration < 0 {
		return fmt.Errorf("analysis delay must not be negative")
	}
	return nil
}

// Address is the operation server endpoint in hostclient/opserver form.
func (c *Config) Address() string {
	if c.Socket != "" {
		return "unix://" + c.Socket
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
