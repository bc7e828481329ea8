package linktap

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/linktap/go-linktap-sdk/api"
	"github.com/linktap/go-linktap-sdk/util"
)

const VERSION = "1.0.0"

const (
	DefaultAPIURI             = "https://www.link-tap.com/api/v1"
	DefaultKeepAliveInterval  = 30 * time.Second
	DefaultTimeoutMultiplier  = 2.5
	DefaultReopenCloseTimeout = 10 * time.Second
	DefaultStopCloseTimeout   = 0 * time.Second
)

// use a single instance of Validate, it caches struct info
var validate = validator.New()

type AdvancedOptions struct {
	// TimeoutMultiplier scales KeepAliveInterval into the silence threshold
	// after which the stream is considered dead.
	TimeoutMultiplier  float64       `json:"timeoutMultiplier,omitempty" validate:"gt=1"`
	ReopenCloseTimeout time.Duration `json:"reopenCloseTimeout,omitempty" validate:"gte=0s"`
	StopCloseTimeout   time.Duration `json:"stopCloseTimeout,omitempty" validate:"gte=0s"`
	MaxResolveAttempts int           `json:"maxResolveAttempts,omitempty" validate:"gte=1,lte=10"`
}

type Options struct {
	APIURI            string        `json:"apiURI,omitempty" validate:"required,url"`
	KeepAliveInterval time.Duration `json:"keepAliveInterval,omitempty" validate:"gte=1s"`
	RequestTimeout    time.Duration `json:"requestTimeout,omitempty"`
	// ClientEventHandler receives lifecycle events. Sends never block; events
	// are dropped when the channel is full.
	ClientEventHandler chan api.ClientEvent
	Logger             util.Logger
	Transport          TransportBuilder
	Decoder            PayloadDecoder
	Scheduler          Scheduler
	AdvancedOptions
}

func (o *Options) CheckDefaults() {
	if o.APIURI == "" {
		o.APIURI = DefaultAPIURI
	}
	if o.KeepAliveInterval < time.Second {
		if o.KeepAliveInterval != 0 {
			util.Warnf("KeepAliveInterval cannot be less than 1 second. Defaulting to %s.", DefaultKeepAliveInterval)
		}
		o.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if o.RequestTimeout <= time.Second*5 {
		o.RequestTimeout = time.Second * 5
	}
	if o.TimeoutMultiplier <= 1 {
		if o.TimeoutMultiplier != 0 {
			util.Warnf("TimeoutMultiplier must be greater than 1. Defaulting to %.1f.", DefaultTimeoutMultiplier)
		}
		o.TimeoutMultiplier = DefaultTimeoutMultiplier
	}
	if o.ReopenCloseTimeout <= 0 {
		o.ReopenCloseTimeout = DefaultReopenCloseTimeout
	}
	if o.StopCloseTimeout < 0 {
		o.StopCloseTimeout = DefaultStopCloseTimeout
	}
	if o.MaxResolveAttempts <= 0 {
		o.MaxResolveAttempts = 3
	} else if o.MaxResolveAttempts > 10 {
		o.MaxResolveAttempts = 10
	}
}

func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("options validation failed: %w", err)
	}
	return nil
}

// ConnectionTimeout is the silence after which the stream is assumed dead.
func (o *Options) ConnectionTimeout() time.Duration {
	return time.Duration(float64(o.KeepAliveInterval) * o.TimeoutMultiplier)
}

type yamlOptions struct {
	APIURI             string  `yaml:"apiURI"`
	KeepAliveInterval  string  `yaml:"keepAliveInterval"`
	RequestTimeout     string  `yaml:"requestTimeout"`
	TimeoutMultiplier  float64 `yaml:"timeoutMultiplier"`
	ReopenCloseTimeout string  `yaml:"reopenCloseTimeout"`
	StopCloseTimeout   string  `yaml:"stopCloseTimeout"`
	MaxResolveAttempts int     `yaml:"maxResolveAttempts"`
}

// LoadOptions reads Options from a YAML file. Durations use time.ParseDuration
// syntax ("30s", "1m"). Defaults are applied to anything left unset.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw yamlOptions
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	o := &Options{
		APIURI: raw.APIURI,
		AdvancedOptions: AdvancedOptions{
			TimeoutMultiplier:  raw.TimeoutMultiplier,
			MaxResolveAttempts: raw.MaxResolveAttempts,
		},
	}
	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"keepAliveInterval", raw.KeepAliveInterval, &o.KeepAliveInterval},
		{"requestTimeout", raw.RequestTimeout, &o.RequestTimeout},
		{"reopenCloseTimeout", raw.ReopenCloseTimeout, &o.ReopenCloseTimeout},
		{"stopCloseTimeout", raw.StopCloseTimeout, &o.StopCloseTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: invalid %s %q: %w", path, d.name, d.value, err)
		}
		*d.dest = parsed
	}

	o.CheckDefaults()
	return o, nil
}

type HTTPConfiguration struct {
	BasePath      string            `json:"basePath,omitempty"`
	DefaultHeader map[string]string `json:"defaultHeader,omitempty"`
	UserAgent     string            `json:"userAgent,omitempty"`
	HTTPClient    *http.Client
}

func NewConfiguration(options *Options) *HTTPConfiguration {
	platform := (&api.PlatformData{}).Default(VERSION)
	cfg := &HTTPConfiguration{
		BasePath:      options.APIURI,
		DefaultHeader: make(map[string]string),
		UserAgent:     platform.UserAgent(),
		HTTPClient: &http.Client{
			// Set an explicit timeout so that we don't wait forever on a request
			Timeout: options.RequestTimeout,
		},
	}
	return cfg
}

func (c *HTTPConfiguration) AddDefaultHeader(key string, value string) {
	c.DefaultHeader[key] = value
}

func newTLSConfig() *tls.Config {
	return &tls.Config{MinVersion: tls.VersionTLS12}
}
