package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBackend(t *testing.T) {
	okBefore := testutil.ToFloat64(BackendOps.WithLabelValues("test_op", "ok"))
	errBefore := testutil.ToFloat64(BackendOps.WithLabelValues("test_op", "error"))

	ObserveBackend("test_op", time.Now(), nil)
	ObserveBackend("test_op", time.Now(), errors.New("boom"))
	ObserveBackend("test_op", time.Now(), nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(BackendOps.WithLabelValues("test_op", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(BackendOps.WithLabelValues("test_op", "error")))
}

func TestRegistryGathers(t *testing.T) {
	ObserveBackend("gather", time.Now(), nil)

	families, err := Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["treestore_backend_operations_total"])
	assert.True(t, names["treestore_backend_operation_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}
