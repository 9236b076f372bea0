package clientx

import "time"

// Config holds the settings that shape clients built by the default factory.
// Field tags bind it through configx: `env` names the key, `default` its
// fallback, `validate` the accepted range.
type Config struct {
	Timeout             time.Duration `env:"CLIENTPOOL_TIMEOUT" default:"0s" validate:"gte=0"`
	DialTimeout         time.Duration `env:"CLIENTPOOL_DIAL_TIMEOUT" default:"30s" validate:"gte=0"`
	MaxIdleConns        int           `env:"CLIENTPOOL_MAX_IDLE_CONNS" default:"100" validate:"gte=0"`
	MaxIdleConnsPerHost int           `env:"CLIENTPOOL_MAX_IDLE_CONNS_PER_HOST" default:"10" validate:"gte=0"`
	IdleConnTimeout     time.Duration `env:"CLIENTPOOL_IDLE_CONN_TIMEOUT" default:"90s" validate:"gte=0"`
	TLSHandshakeTimeout time.Duration `env:"CLIENTPOOL_TLS_HANDSHAKE_TIMEOUT" default:"10s" validate:"gte=0"`
	MaxRetries          int           `env:"CLIENTPOOL_MAX_RETRIES" default:"0" validate:"gte=0,lte=10"`
	RetryBackoff        time.Duration `env:"CLIENTPOOL_RETRY_BACKOFF" default:"100ms" validate:"gte=0"`
	CircuitBreaker      bool          `env:"CLIENTPOOL_CIRCUIT_BREAKER" default:"false"`
	CircuitThreshold    uint32        `env:"CLIENTPOOL_CIRCUIT_THRESHOLD" default:"5" validate:"gte=1"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" default:"logfmt" validate:"oneof=logfmt json"`
}

// Options converts the config into factory options.
func (c Config) Options() []FactoryOption {
	return []FactoryOption{
		WithTimeout(c.Timeout),
		WithDialTimeout(c.DialTimeout),
		WithIdleConns(c.MaxIdleConns, c.MaxIdleConnsPerHost),
		WithIdleConnTimeout(c.IdleConnTimeout),
		WithTLSHandshakeTimeout(c.TLSHandshakeTimeout),
		WithRetry(c.MaxRetries),
		WithRetryBackoff(c.RetryBackoff),
		WithCircuitBreaker(c.CircuitBreaker),
		WithCircuitThreshold(c.CircuitThreshold),
	}
}

// FactoryFromConfig returns a default factory tuned by cfg; extra options are
// applied after the config-derived ones.
func FactoryFromConfig(cfg Config, extra ...FactoryOption) Factory {
	return NewFactory(append(cfg.Options(), extra...)...)
}
