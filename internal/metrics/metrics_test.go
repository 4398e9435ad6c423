package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeti/confpatch"
)

func TestReporter(t *testing.T) {
	t.Parallel()

	r := New()

	_, err := confpatch.Patch([]byte("port = 1\nport = 2\n#port = 3\n"), []confpatch.Setting{
		confpatch.KV("port", "5433"),
		confpatch.KV("wal_level", "hot_standby"),
	}, confpatch.Options{Reporter: r.Reporter("postgresql")})
	require.NoError(t, err)

	for kind, want := range map[string]float64{
		"found":               3,
		"replaced":            1,
		"commented-duplicate": 1,
		"left-commented":      1,
		"appended":            1,
	} {
		assert.InDelta(t, want, testutil.ToFloat64(r.events.WithLabelValues("postgresql", kind)), 0, kind)
	}
}

func TestObserveRun(t *testing.T) {
	t.Parallel()

	r := New()

	r.ObserveRun("a", &confpatch.Result{Changed: true}, false, nil)
	r.ObserveRun("a", &confpatch.Result{Changed: true}, false, nil)
	r.ObserveRun("a", &confpatch.Result{}, false, nil)
	r.ObserveRun("b", &confpatch.Result{Changed: true}, true, nil)
	r.ObserveRun("b", nil, false, errors.New("boom"))

	assert.InDelta(t, 2, testutil.ToFloat64(r.runs.WithLabelValues("a", ResultChanged)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.runs.WithLabelValues("a", ResultUnchanged)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.runs.WithLabelValues("b", ResultDryRun)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.runs.WithLabelValues("b", ResultError)), 0)
	assert.Positive(t, testutil.ToFloat64(r.lastRun.WithLabelValues("b")))
}

func TestResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ResultError, Result(&confpatch.Result{Changed: true}, false, errors.New("x")))
	assert.Equal(t, ResultError, Result(nil, false, nil))
	assert.Equal(t, ResultUnchanged, Result(&confpatch.Result{}, true, nil))
	assert.Equal(t, ResultDryRun, Result(&confpatch.Result{Changed: true}, true, nil))
	assert.Equal(t, ResultChanged, Result(&confpatch.Result{Changed: true}, false, nil))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRun("pg_hba", &confpatch.Result{Changed: true}, false, nil)

	path := filepath.Join(t.TempDir(), "confpatch.prom")
	require.NoError(t, r.WriteTextfile(path))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(buf), `confpatch_runs_total{result="changed",target="pg_hba"} 1`)

	require.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
