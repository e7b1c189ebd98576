package kafka

import "github.com/segmentio/kafka-go"

// injectCarrier collects propagation headers on the produce side and converts
// them to kafka message headers.
type injectCarrier map[string]string

func (c injectCarrier) Get(key string) string { return c[key] }
func (c injectCarrier) Set(key, val string)   { c[key] = val }

func (c injectCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func (c injectCarrier) headers() []kafka.Header {
	hs := make([]kafka.Header, 0, len(c))
	for k, v := range c {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

// extractCarrier reads propagation headers straight off a consumed message.
type extractCarrier []kafka.Header

func (c extractCarrier) Get(key string) string {
	for _, h := range c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c extractCarrier) Set(string, string) {}

func (c extractCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for _, h := range c {
		keys = append(keys, h.Key)
	}
	return keys
}
