package kafka

import (
	"github.com/segmentio/kafka-go"
)

// Header keys set on every produced message.
const (
	HeaderContentType   = "content-type"
	HeaderCorrelationID = "correlation-id"
)

const contentTypeJSON = "application/json"

// Header returns the value of the first header named key, or "".
func Header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Headers converts a map into message headers, content type first.
func Headers(kv map[string]string) []kafka.Header {
	out := make([]kafka.Header, 0, len(kv)+1)
	out = append(out, kafka.Header{Key: HeaderContentType, Value: []byte(contentTypeJSON)})
	for k, v := range kv {
		if k == HeaderContentType {
			continue
		}
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}
