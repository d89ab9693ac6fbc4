package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNodeaddr = "localhost:3050"
	DefaultInterval = 60 * time.Second
)

type SellerConfig struct {
	Name  string         `yaml:"name"`
	Items map[string]int `yaml:"items"`
	// MaxTitleLength makes the seller decline queries for longer titles.
	MaxTitleLength int `yaml:"max_title_length"`
}

type BuyerConfig struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	// Sellers are addressed until the first directory refresh.
	Sellers []string `yaml:"sellers"`
}

type Config struct {
	Nodeaddr string `yaml:"nodeaddr"`
	// AdvertiseAddr is the address other nodes reach this node at, when it
	// differs from the listen address (behind a proxy or NAT).
	AdvertiseAddr string `yaml:"advertise_addr"`
	// Directory is the address of the node hosting the directory. Empty
	// means this node hosts it.
	Directory    string         `yaml:"directory"`
	MetricsAddr  string         `yaml:"metrics_addr"`
	JournalDir   string         `yaml:"journal_dir"`
	Interval     time.Duration  `yaml:"interval"`
	ReplyTimeout time.Duration  `yaml:"reply_timeout"`
	MailboxSize  int            `yaml:"mailbox_size"`
	LogLevel     string         `yaml:"log_level"`
	Sellers      []SellerConfig `yaml:"sellers"`
	Buyers       []BuyerConfig  `yaml:"buyers"`
}

// Default returns the configuration of a node hosting no actors.
func Default() *Config {
	return &Config{
		Nodeaddr: DefaultNodeaddr,
		Interval: DefaultInterval,
		LogLevel: log.InfoLevel.String(),
	}
}

// Load reads the yaml configuration file at path over the defaults. An empty
// path yields the defaults.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}

	return conf, nil
}

// Advertised returns the address hosted actors are named after.
func (c *Config) Advertised() string {
	if c.AdvertiseAddr != "" {
		return c.AdvertiseAddr
	}
	return c.Nodeaddr
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var err error

	if c.Nodeaddr == "" {
		err = multierr.Append(err, errors.New("nodeaddr is required"))
	}
	if c.Interval <= 0 {
		err = multierr.Append(err, errors.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.ReplyTimeout < 0 {
		err = multierr.Append(err, errors.Errorf("reply_timeout cannot be negative, got %s", c.ReplyTimeout))
	}
	if c.MailboxSize < 0 {
		err = multierr.Append(err, errors.Errorf("mailbox_size cannot be negative, got %d", c.MailboxSize))
	}
	if _, lvlErr := log.ParseLevel(c.LogLevel); lvlErr != nil {
		err = multierr.Append(err, lvlErr)
	}

	names := make(map[string]struct{})
	checkName := func(kind, name string) {
		switch {
		case name == "":
			err = multierr.Append(err, errors.Errorf("%s without a name", kind))
		case strings.Contains(name, "@"):
			err = multierr.Append(err, errors.Errorf("%s name %q cannot contain '@'", kind, name))
		default:
			if _, dup := names[name]; dup {
				err = multierr.Append(err, errors.Errorf("duplicate actor name %q", name))
			}
			names[name] = struct{}{}
		}
	}

	for _, s := range c.Sellers {
		checkName("seller", s.Name)
		if s.MaxTitleLength < 0 {
			err = multierr.Append(err, errors.Errorf("seller %q: max_title_length cannot be negative", s.Name))
		}
		for title, price := range s.Items {
			if strings.TrimSpace(title) == "" {
				err = multierr.Append(err, errors.Errorf("seller %q lists an empty title", s.Name))
			}
			if price < 0 {
				err = multierr.Append(err, errors.Errorf("seller %q lists %q at negative price %d", s.Name, title, price))
			}
		}
	}

	for _, b := range c.Buyers {
		checkName("buyer", b.Name)
		if strings.TrimSpace(b.Title) == "" {
			err = multierr.Append(err, errors.Errorf("buyer %q has no target book title", b.Name))
		}
	}

	return err
}
