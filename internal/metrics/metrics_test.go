package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.CodesSent.WithLabelValues("email", "ok").Inc()
	p.RowsImported.WithLabelValues("failed").Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.CodesSent.WithLabelValues("email", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.RowsImported.WithLabelValues("failed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hrportal_verification_codes_sent_total")
	assert.Contains(t, names, "hrportal_import_rows_total")

	assert.Panics(t, func() { New(reg) }, "double registration must fail loudly")
	assert.NotPanics(t, func() { New(nil) })
}
