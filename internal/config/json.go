package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// fileConfig is the JSON shape of the configuration file. It is an
// intermediate DTO: values are copied into Config after unmarshalling so the
// runtime struct can use time.Duration and keep the file format stable.
type fileConfig struct {
	Addr           string                 `json:"addr,omitempty"`
	StaticDir      string                 `json:"static_dir,omitempty"`
	CertDir        string                 `json:"cert_dir,omitempty"`
	AllowedOrigins []string               `json:"allowed_origins,omitempty"`
	MaxMessageSize int64                  `json:"max_message_size,omitempty"`
	SendQueueSize  int                    `json:"send_queue_size,omitempty"`
	RateLimit      *fileRateLimit         `json:"rate_limit,omitempty"`
	Session        *fileSession           `json:"session,omitempty"`
	Users          map[string]UserRecord  `json:"users"`
	Proxies        map[string]ProxyTarget `json:"proxies"`
}

type fileRateLimit struct {
	Burst         int `json:"burst"`
	RefillSeconds int `json:"refill_seconds"`
}

type fileSession struct {
	Secret      string `json:"secret"`
	ExpiryHours int    `json:"expiry_hours"`
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// A missing file is not an error; defaults apply and the first
			// Save creates it.
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.StaticDir != "" {
		c.StaticDir = fc.StaticDir
	}
	if fc.CertDir != "" {
		c.CertDir = fc.CertDir
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.MaxMessageSize > 0 {
		c.MaxMessageSize = fc.MaxMessageSize
	}
	if fc.SendQueueSize > 0 {
		c.SendQueueSize = fc.SendQueueSize
	}
	if fc.RateLimit != nil {
		if fc.RateLimit.Burst > 0 {
			c.RateLimit.Burst = fc.RateLimit.Burst
		}
		if fc.RateLimit.RefillSeconds > 0 {
			c.RateLimit.RefillInterval = time.Duration(fc.RateLimit.RefillSeconds) * time.Second
		}
	}
	if fc.Session != nil {
		c.SessionSecret = fc.Session.Secret
		if fc.Session.ExpiryHours > 0 {
			c.SessionTTL = time.Duration(fc.Session.ExpiryHours) * time.Hour
		}
	}
	if fc.Users != nil {
		c.Users = fc.Users
	}
	if fc.Proxies != nil {
		c.Proxies = fc.Proxies
	}
	return nil
}

// Save writes the configuration back to the file it was loaded from with
// pretty formatting. Users, proxy targets, and a generated session secret
// survive restarts this way.
func (c *Config) Save() error {
	fc := fileConfig{
		Addr:           c.Addr,
		StaticDir:      c.StaticDir,
		CertDir:        c.CertDir,
		AllowedOrigins: c.AllowedOrigins,
		MaxMessageSize: c.MaxMessageSize,
		SendQueueSize:  c.SendQueueSize,
		RateLimit: &fileRateLimit{
			Burst:         c.RateLimit.Burst,
			RefillSeconds: int(c.RateLimit.RefillInterval.Seconds()),
		},
		Session: &fileSession{
			Secret:      c.SessionSecret,
			ExpiryHours: int(c.SessionTTL.Hours()),
		},
		Users:   c.Users,
		Proxies: c.Proxies,
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.path, err)
	}
	return nil
}

// SetPath overrides the file path used by Save. Mainly for tests and for
// creating a config file at an explicit location.
func (c *Config) SetPath(path string) {
	c.path = path
}
