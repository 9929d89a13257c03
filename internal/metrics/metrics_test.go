package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecompute(t *testing.T) {
	m := New()

	m.ObserveRecompute(2, 5, 10*time.Millisecond, nil)
	m.ObserveRecompute(0, 0, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputes.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.groupsFormed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.linksGrouped))
}

func TestObserveResolutionAndArchive(t *testing.T) {
	m := New()

	m.ObserveResolution("chosen")
	m.ObserveResolution("chosen")
	m.ObserveResolution("no_resolution")
	m.ObserveArchived(3)
	m.LeaseContended()
	m.ObserveHTTP("POST", "/api/decisions/recompute", 200)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("chosen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("no_resolution")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.archived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leaseContention))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/decisions/recompute", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecompute(1, 2, time.Second, nil)
		m.ObserveResolution("chosen")
		m.ObserveArchived(1)
		m.LeaseContended()
		m.ObserveHTTP("GET", "/healthz", 200)
	})
}
