package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountersIncrement(t *testing.T) {
	m := New()

	m.IncConnections()
	m.IncConnections()
	m.DecConnections()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connections))

	m.IncCheating()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cheating))

	m.IncUnknownPlayer()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.unknownPlayer))

	m.IncParseError()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.parseErrors))
}
