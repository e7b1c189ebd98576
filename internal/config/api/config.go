package api_config

import (
	"time"

	"github.com/priceping/priceping/internal/obs"
	pg "github.com/priceping/priceping/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig(app *App) *obs.LogConfig {
	return &obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "priceping/" + app.Name,
		Env:    app.Env,
		Ver:    app.Version,
	}
}

// Cron guards the synchronous check-all endpoint. The token is the shared
// secret expected in the Authorization header.
type Cron struct {
	Token       string        `mapstructure:"token"`
	Concurrency int           `mapstructure:"concurrency"`
	Budget      time.Duration `mapstructure:"budget"`
}

type Fetch struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`

	// InsecureSkipVerify disables TLS certificate checks; leave false
	// outside local development.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

type Config struct {
	App    App       `mapstructure:"app"`
	Server Server    `mapstructure:"server"`
	DB     pg.Config `mapstructure:"db"`
	OTEL   OTEL      `mapstructure:"otel"`
	Log    Log       `mapstructure:"log"`
	Cron   Cron      `mapstructure:"cron"`
	Fetch  Fetch     `mapstructure:"fetch"`
}
