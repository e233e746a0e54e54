package sweepq

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_760_000_000, 0)

func newTestOps(store *fakeStore, dryRun bool) (*SweepOps, *LineRecorder) {
	rec := &LineRecorder{}
	return &SweepOps{
		R:      store,
		Prefix: store.prefix,
		Now:    func() time.Time { return fixedNow },
		DryRun: dryRun,
		Logger: rec.Log,
		Report: &Report{DryRun: dryRun},
	}, rec
}

func TestProcessKey_JobHashStatus(t *testing.T) {
	tests := []struct {
		status     map[string]string
		wantDelete bool
	}{
		{map[string]string{"status": "completed"}, true},
		{map[string]string{"status": "failed"}, true},
		{map[string]string{"status": "running"}, false},
		{map[string]string{"status": "pending"}, false},
		{map[string]string{"status": "reserved"}, false},
		{map[string]string{"status": "Completed"}, false},
		{map[string]string{"name": "App\\Jobs\\Deploy"}, false},
		{map[string]string{}, false},
	}
	for _, tt := range tests {
		store := newFakeStore("")
		store.setHash("42", tt.status)
		ops, _ := newTestOps(store, false)

		deleted, err := ops.ProcessKey("42")
		require.NoError(t, err)
		assert.Equal(t, tt.wantDelete, deleted, "fields %v", tt.status)
		assert.Equal(t, !tt.wantDelete, store.has("42"), "fields %v", tt.status)
	}
}

func TestProcessKey_JobLine(t *testing.T) {
	store := newFakeStore("")
	store.setHash("42", map[string]string{"status": "failed"})
	ops, rec := newTestOps(store, false)

	_, err := ops.ProcessKey("42")
	require.NoError(t, err)
	assert.Equal(t, []string{"Deleted job: 42 (status: failed)"}, rec.Lines)
	assert.Equal(t, 1, ops.Report.KeysDeleted)
}

func TestProcessKey_PatternAlwaysDeleted(t *testing.T) {
	store := newFakeStore("")
	store.setZSet("recent_jobs", "a", "b")
	store.setString("metrics:snapshot", "whatever")
	store.setSet("measured_queues")
	ops, rec := newTestOps(store, false)

	for _, name := range []string{"recent_jobs", "metrics:snapshot", "measured_queues"} {
		deleted, err := ops.ProcessKey(name)
		require.NoError(t, err)
		assert.True(t, deleted, name)
		assert.False(t, store.has(name), name)
	}
	assert.True(t, rec.Contains("Deleted Recent jobs list: recent_jobs"))
	assert.True(t, rec.Contains("Deleted Queue metrics: measured_queues"))
}

func TestProcessKey_TimestampBoundary(t *testing.T) {
	cutoff := fixedNow.Add(-7 * 24 * time.Hour).Unix()
	tests := []struct {
		ts         int64
		wantDelete bool
	}{
		{cutoff - 1, true},
		{cutoff, false},
		{cutoff + 1, false},
		{fixedNow.Unix(), false},
	}
	for _, tt := range tests {
		store := newFakeStore("")
		name := "snapshot:" + strconv.FormatInt(tt.ts, 10)
		store.setString(name, "x")
		ops, _ := newTestOps(store, false)

		deleted, err := ops.ProcessKey(name)
		require.NoError(t, err)
		assert.Equal(t, tt.wantDelete, deleted, "ts %d", tt.ts)
	}
}

func TestProcessKey_RetentionOverride(t *testing.T) {
	store := newFakeStore("")
	name := "snapshot:" + strconv.FormatInt(fixedNow.Add(-2*24*time.Hour).Unix(), 10)
	store.setString(name, "x")
	ops, _ := newTestOps(store, false)
	ops.Retention = 24 * time.Hour

	deleted, err := ops.ProcessKey(name)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestProcessKey_UnclassifiedKept(t *testing.T) {
	store := newFakeStore("")
	store.setList("queue:default", "a", "a")
	store.setString("master:host-1", "x")
	ops, rec := newTestOps(store, false)

	for _, name := range []string{"queue:default", "master:host-1"} {
		deleted, err := ops.ProcessKey(name)
		require.NoError(t, err)
		assert.False(t, deleted)
	}
	assert.Empty(t, store.writes)
	assert.Empty(t, rec.Lines)
}

func TestProcessKey_VanishedKeySkipped(t *testing.T) {
	store := newFakeStore("")
	ops, _ := newTestOps(store, false)

	deleted, err := ops.ProcessKey("metrics:gone")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, store.writes)
}

func TestProcessKey_DryRun(t *testing.T) {
	store := newFakeStore("")
	store.setHash("42", map[string]string{"status": "completed"})
	ops, rec := newTestOps(store, true)

	deleted, err := ops.ProcessKey("42")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, store.has("42"))
	assert.Empty(t, store.writes)
	assert.Equal(t, []string{"Would delete job: 42 (status: completed)"}, rec.Lines)
	require.Len(t, ops.Report.Actions, 1)
	assert.True(t, ops.Report.Actions[0].Hypothetical)
}

func TestProcessKey_StoreErrorIsFatal(t *testing.T) {
	store := newFakeStore("")
	store.setHash("42", map[string]string{"status": "completed"})
	store.failOn["HGETALL"] = errors.New("connection refused")
	ops, _ := newTestOps(store, false)

	_, err := ops.ProcessKey("42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hgetall 42")
}

func TestDeduplicateGroup_OnlyEmptyCollections(t *testing.T) {
	store := newFakeStore("")
	store.setList("q")
	store.setList("q:pending")
	store.setSet("q:reserved")
	store.setZSet("q:delayed")
	store.setList("q:processing", "job")
	store.setString("q:1700000000", "x")
	store.setHash("q:1700000001", map[string]string{})
	ops, _ := newTestOps(store, false)

	keys := []string{"q:pending", "q:reserved", "q:delayed", "q:processing", "q:1700000000", "q:1700000001", "q"}
	n, err := ops.DeduplicateGroup("q", keys)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.True(t, store.has("q"), "canonical key is never removed even when empty")
	assert.False(t, store.has("q:pending"))
	assert.False(t, store.has("q:reserved"))
	assert.False(t, store.has("q:delayed"))
	assert.True(t, store.has("q:processing"))
	assert.True(t, store.has("q:1700000000"))
	assert.True(t, store.has("q:1700000001"))
	assert.Equal(t, 3, ops.Report.GroupKeysDeleted)
}

func TestDeduplicateGroup_NewestTimestampKept(t *testing.T) {
	store := newFakeStore("")
	store.setList("q:1700000001")
	store.setList("q:1700000005")
	ops, rec := newTestOps(store, false)

	n, err := ops.DeduplicateGroup("q", []string{"q:1700000001", "q:1700000005"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.has("q:1700000005"))
	assert.False(t, store.has("q:1700000001"))
	assert.Equal(t, "Processing queue group: q (2 keys)", rec.Lines[0])
	assert.Equal(t, "  Deleted empty queue: q:1700000001", rec.Lines[1])
}

func TestDeduplicateGroup_DryRun(t *testing.T) {
	store := newFakeStore("")
	store.setList("q")
	store.setList("q:pending")
	ops, rec := newTestOps(store, true)

	n, err := ops.DeduplicateGroup("q", []string{"q", "q:pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.has("q:pending"))
	assert.Empty(t, store.writes)
	assert.True(t, rec.Contains("  Would delete empty queue: q:pending"))
}

func TestDeduplicateContents(t *testing.T) {
	store := newFakeStore("")
	store.setList("queue:default", "a", "b", "a", "c", "b")
	ops, rec := newTestOps(store, false)

	n, err := ops.DeduplicateContents("queue:default")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "c"}, store.list("queue:default"))
	assert.Equal(t, []string{
		"DEL queue:default",
		"LPUSH queue:default c",
		"LPUSH queue:default b",
		"LPUSH queue:default a",
	}, store.writes)
	assert.Equal(t, []string{"  Removed 2 duplicate jobs from queue: queue:default"}, rec.Lines)
	assert.Equal(t, 2, ops.Report.DuplicatesRemoved)
	assert.Equal(t, 2, ops.Report.Deleted)
}

func TestDeduplicateContents_DryRun(t *testing.T) {
	store := newFakeStore("")
	store.setList("queue:default", "a", "b", "a", "c", "b")
	ops, rec := newTestOps(store, true)

	n, err := ops.DeduplicateContents("queue:default")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b", "a", "c", "b"}, store.list("queue:default"))
	assert.Empty(t, store.writes)
	assert.Equal(t, []string{"  Would remove 2 duplicate jobs from queue: queue:default"}, rec.Lines)
}

func TestDeduplicateContents_NothingToDo(t *testing.T) {
	store := newFakeStore("")
	store.setList("single", "a")
	store.setList("unique", "a", "b", "c")
	store.setSet("set", "a")
	ops, _ := newTestOps(store, false)

	for _, key := range []string{"single", "unique", "set", "missing"} {
		n, err := ops.DeduplicateContents(key)
		require.NoError(t, err)
		assert.Zero(t, n, key)
	}
	assert.Empty(t, store.writes)
}

func TestUniqueInOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UniqueInOrder([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{}, UniqueInOrder(nil))
}

func TestClassifyLock(t *testing.T) {
	assert.Equal(t, LockNoExpiration, ClassifyLock(-1))
	assert.Equal(t, LockActive, ClassifyLock(120))
	assert.Equal(t, LockAbsent, ClassifyLock(-2))
	assert.Equal(t, LockAbsent, ClassifyLock(0))
}

func TestCleanupLocks(t *testing.T) {
	locks := newFakeStore("")
	locks.setString("laravel_cache:laravel-queue-overlap:Deploy:1", "owner")
	locks.setString("laravel_cache:laravel-queue-overlap:Deploy:2", "owner")
	locks.setTTL("laravel_cache:laravel-queue-overlap:Deploy:2", 120)
	locks.setString("laravel_cache:laravel-queue-overlap:Deploy:3", "owner")
	locks.setTTL("laravel_cache:laravel-queue-overlap:Deploy:3", TTLMissing)
	locks.setString("laravel_cache:session:abc", "x")

	ops, rec := newTestOps(newFakeStore(""), false)
	ops.Locks = locks

	n, err := ops.CleanupLocks()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, locks.has("laravel_cache:laravel-queue-overlap:Deploy:1"))
	assert.True(t, locks.has("laravel_cache:laravel-queue-overlap:Deploy:2"))
	assert.True(t, locks.has("laravel_cache:session:abc"))
	assert.Equal(t, []string{"DEL laravel_cache:laravel-queue-overlap:Deploy:1"}, locks.writes)

	assert.Equal(t, []string{
		"  Found 3 cache lock(s)",
		"  Deleted STALE lock (no expiration): laravel_cache:laravel-queue-overlap:Deploy:1",
		"  Skipping active lock (expires in 120s): laravel_cache:laravel-queue-overlap:Deploy:2",
	}, rec.Lines)
	assert.Equal(t, 3, ops.Report.LocksFound)
	assert.Equal(t, 1, ops.Report.LocksDeleted)
}

func TestCleanupLocks_DryRunWarns(t *testing.T) {
	locks := newFakeStore("")
	locks.setString("laravel-queue-overlap:x", "owner")
	ops, rec := newTestOps(newFakeStore(""), true)
	ops.Locks = locks

	n, err := ops.CleanupLocks()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, locks.has("laravel-queue-overlap:x"))
	assert.Empty(t, locks.writes)
	assert.Equal(t, LineWarn, rec.Kinds[1])
	assert.Equal(t, "  Would delete STALE lock (no expiration): laravel-queue-overlap:x", rec.Lines[1])
}

func TestCleanupLocks_NoneFound(t *testing.T) {
	locks := newFakeStore("")
	locks.setString("laravel-queue-overlap:x", "owner")
	locks.setTTL("laravel-queue-overlap:x", 30)

	ops, rec := newTestOps(newFakeStore(""), false)
	ops.Locks = locks
	ops.LockMarker = "custom-marker"

	n, err := ops.CleanupLocks()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"  No cache locks found."}, rec.Lines)

	ops.LockMarker = ""
	rec.Lines = nil
	n, err = ops.CleanupLocks()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, rec.Lines, "  No stale locks found (all locks have expiration set)")
}

func TestCleanupLocks_NoStore(t *testing.T) {
	ops, _ := newTestOps(newFakeStore(""), false)
	_, err := ops.CleanupLocks()
	assert.ErrorIs(t, err, ErrNoLockStore)
}
