package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMQHeaderCarrier(t *testing.T) {
	headers := map[string]interface{}{"traceparent": "00-abc-def-01", "x-retry": 3}
	c := NewMQHeaderCarrier(headers)

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("x-retry"))
	assert.Equal(t, "", c.Get("missing"))

	c.Set("tracestate", "k=v")
	assert.Equal(t, "k=v", headers["tracestate"])
	assert.ElementsMatch(t, []string{"traceparent", "x-retry", "tracestate"}, c.Keys())
}

func TestNilHeadersAreAllocated(t *testing.T) {
	c := NewMQHeaderCarrier(nil)
	c.Set("traceparent", "x")
	assert.Equal(t, "x", c.Get("traceparent"))
}

func TestSamplerRatioFallsBackToDefault(t *testing.T) {
	assert.Contains(t, Config{}.sampler().Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, Config{SampleRatio: 3}.sampler().Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, Config{SampleRatio: 1}.sampler().Description(), "TraceIDRatioBased{1}")
}
