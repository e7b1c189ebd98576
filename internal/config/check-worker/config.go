package check_worker_config

import (
	"time"

	"github.com/priceping/priceping/internal/obs"
	kafkax "github.com/priceping/priceping/internal/repository/kafka"
	pginfra "github.com/priceping/priceping/internal/repository/postgres"
)

type KafkaIn struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

func (k *KafkaIn) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers: k.Brokers,
		GroupID: k.GroupID,
		Topic:   k.Topic,
	}
}

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
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

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	DB       pginfra.Config `mapstructure:"db"`
	In       KafkaIn        `mapstructure:"kafka_in"`
	Out      KafkaOut       `mapstructure:"kafka_out"`
	Fetch    Fetch          `mapstructure:"fetch"`
	Outbox   Outbox         `mapstructure:"outbox"`
	Server   Server         `mapstructure:"server"`
	OTEL     obs.OTELConfig `mapstructure:"otel"`
	LogLevel string         `mapstructure:"log_level"`
}
