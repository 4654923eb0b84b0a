package runlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndFinish(t *testing.T) {
	l := openTestLog(t)

	l.Begin("run-1")
	l.Record("run-1", Entry{
		ResultID: "res-1",
		Title:    "basic.html",
		Pass:     true,
		Updated:  true,
		Duration: 120 * time.Millisecond,
	})
	l.Record("run-1", Entry{
		ResultID: "res-2",
		Title:    "broken.html",
		Pass:     false,
		Detail:   "golden mismatch",
		Duration: 80 * time.Millisecond,
	})
	l.Finish("run-1", 2, 1)

	var scenarios, failures int
	err := l.db.QueryRow(
		`SELECT scenarios, failures FROM runs WHERE run_id = ?`, "run-1").
		Scan(&scenarios, &failures)
	require.NoError(t, err)
	assert.Equal(t, 2, scenarios)
	assert.Equal(t, 1, failures)

	var count int
	err = l.db.QueryRow(
		`SELECT COUNT(*) FROM scenario_results WHERE run_id = ?`, "run-1").
		Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var pass int
	var detail string
	err = l.db.QueryRow(
		`SELECT pass, detail FROM scenario_results WHERE result_id = ?`, "res-2").
		Scan(&pass, &detail)
	require.NoError(t, err)
	assert.Equal(t, 0, pass)
	assert.Equal(t, "golden mismatch", detail)
}

func TestWriteErrorsAreSwallowed(t *testing.T) {
	l := openTestLog(t)

	// Duplicate primary keys are write errors; they must be logged, not
	// panicked or propagated.
	l.Begin("run-1")
	l.Begin("run-1")
	l.Record("run-1", Entry{ResultID: "res-1", Title: "a"})
	l.Record("run-1", Entry{ResultID: "res-1", Title: "a"})
}

func TestOpenCreatesParentlessPathError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent", "nested", "runs.db"), nil)
	assert.Error(t, err)
}
