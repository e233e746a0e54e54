package sweepq

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoStore     = errors.New("sweepq: no redis connection configured")
	ErrNoLockStore = errors.New("sweepq: lock scan requested without a lock connection")
)

const (
	DefaultRetention  = 7 * 24 * time.Hour
	DefaultLockMarker = "laravel-queue-overlap"
	DefaultScanCount  = 1000
)

// SweepOps holds the stores and settings shared by every phase of a run.
// DryRun suppresses DEL and LPUSH; every other command is still issued so
// that previews and real runs select the same keys.
type SweepOps struct {
	R      RedisLike
	Prefix string

	Locks      RedisLike
	LockPrefix string
	LockMarker string

	Retention time.Duration
	Now       func() time.Time

	DryRun  bool
	Verbose bool
	Logger  CleanupLogger
	Report  *Report
}

func (o *SweepOps) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *SweepOps) retention() time.Duration {
	if o.Retention <= 0 {
		return DefaultRetention
	}
	return o.Retention
}

func (o *SweepOps) report() *Report {
	if o.Report == nil {
		o.Report = &Report{DryRun: o.DryRun}
	}
	return o.Report
}

func (o *SweepOps) log(kind LineKind, msg string) { safeLog(o.Logger, kind, msg) }

func (o *SweepOps) debug(msg string) {
	if o.Verbose {
		safeLog(o.Logger, LinePlain, msg)
	}
}

// remove deletes key (unless DryRun) and records it against phase.
func (o *SweepOps) remove(r RedisLike, phase Phase, key, detail string) error {
	indent := "  "
	if phase == PhaseKeys {
		indent = ""
	}

	if o.DryRun {
		kind := LinePlain
		if phase == PhaseLocks {
			kind = LineWarn
		}
		o.log(kind, fmt.Sprintf("%sWould delete %s", indent, detail))
	} else {
		if _, err := r.Del(key); err != nil {
			return fmt.Errorf("del %s: %w", key, err)
		}
		kind := LinePlain
		if phase == PhaseLocks {
			kind = LineInfo
		}
		o.log(kind, fmt.Sprintf("%sDeleted %s", indent, detail))
	}

	o.report().record(Action{
		Phase:        phase,
		Key:          key,
		Description:  detail,
		Count:        1,
		Hypothetical: o.DryRun,
	})
	return nil
}

// ProcessKey classifies one unprefixed key and deletes it when its category
// allows. It reports whether the key was (or would be) deleted.
func (o *SweepOps) ProcessKey(name string) (bool, error) {
	t, err := o.R.Type(name)
	if err != nil {
		return false, fmt.Errorf("type %s: %w", name, err)
	}
	if t == TypeNone {
		o.debug(fmt.Sprintf("Skipping vanished key: %s", name))
		return false, nil
	}

	cat := Classify(name, t)
	switch {
	case cat == CategoryJobHash:
		return o.processJob(name)

	case cat.PatternMatched():
		if err := o.remove(o.R, PhaseKeys, name, fmt.Sprintf("%s: %s", cat.Describe(), name)); err != nil {
			return false, err
		}
		return true, nil

	case cat == CategoryTimestamped:
		if !o.Expired(name) {
			o.debug(fmt.Sprintf("Keeping recent timestamped data: %s", name))
			return false, nil
		}
		if err := o.remove(o.R, PhaseKeys, name, fmt.Sprintf("%s: %s", cat.Describe(), name)); err != nil {
			return false, err
		}
		return true, nil
	}

	o.debug(fmt.Sprintf("Keeping unclassified %s key: %s", t, name))
	return false, nil
}

// Expired reports whether the timestamp embedded in name is strictly older
// than the retention window. Names without a timestamp never expire.
func (o *SweepOps) Expired(name string) bool {
	ts, ok := ExtractTimestamp(name)
	if !ok {
		return false
	}
	cutoff := o.now().Add(-o.retention()).Unix()
	return ts < cutoff
}

// TerminalStatus reports whether a job status may be garbage collected.
func TerminalStatus(status string) bool {
	return status == "completed" || status == "failed"
}

func (o *SweepOps) processJob(name string) (bool, error) {
	data, err := o.R.HGetAll(name)
	if err != nil {
		return false, fmt.Errorf("hgetall %s: %w", name, err)
	}

	status, ok := data["status"]
	if !ok || !TerminalStatus(status) {
		o.debug(fmt.Sprintf("Keeping job: %s (status: %s)", name, status))
		return false, nil
	}

	detail := fmt.Sprintf("job: %s (status: %s)", name, status)
	if err := o.remove(o.R, PhaseKeys, name, detail); err != nil {
		return false, err
	}
	return true, nil
}

func cardinality(r RedisLike, key string, t KeyType) (int64, error) {
	switch t {
	case TypeList:
		return r.LLen(key)
	case TypeSet:
		return r.SCard(key)
	case TypeZSet:
		return r.ZCard(key)
	}
	return 0, fmt.Errorf("type %s has no cardinality", t)
}

// DeduplicateGroup keeps the preferred member of a queue group and deletes
// the other members that are empty lists, sets or sorted sets. Non-empty
// members and other types are never touched.
func (o *SweepOps) DeduplicateGroup(base string, keys []string) (int, error) {
	o.log(LinePlain, fmt.Sprintf("Processing queue group: %s (%d keys)", base, len(keys)))

	ordered := SortGroup(keys)
	if len(ordered) < 2 {
		return 0, nil
	}
	o.debug(fmt.Sprintf("  Keeping canonical queue: %s", ordered[0]))

	cleaned := 0
	for _, key := range ordered[1:] {
		t, err := o.R.Type(key)
		if err != nil {
			return cleaned, fmt.Errorf("type %s: %w", key, err)
		}
		if !t.Collection() {
			continue
		}

		n, err := cardinality(o.R, key, t)
		if err != nil {
			return cleaned, fmt.Errorf("cardinality %s: %w", key, err)
		}
		if n != 0 {
			continue
		}

		if err := o.remove(o.R, PhaseQueueGroup, key, "empty queue: "+key); err != nil {
			return cleaned, err
		}
		cleaned++
	}
	return cleaned, nil
}

// UniqueInOrder drops repeated items, keeping the first occurrence of each.
func UniqueInOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// DeduplicateContents rewrites a list key without its repeated entries and
// returns how many entries were (or would be) removed.
func (o *SweepOps) DeduplicateContents(key string) (int, error) {
	t, err := o.R.Type(key)
	if err != nil {
		return 0, fmt.Errorf("type %s: %w", key, err)
	}
	if t != TypeList {
		return 0, nil
	}

	n, err := o.R.LLen(key)
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	if n <= 1 {
		return 0, nil
	}

	items, err := o.R.LRange(key, 0, -1)
	if err != nil {
		return 0, fmt.Errorf("lrange %s: %w", key, err)
	}
	unique := UniqueInOrder(items)
	dupes := len(items) - len(unique)
	if dupes == 0 {
		return 0, nil
	}

	if o.DryRun {
		o.log(LinePlain, fmt.Sprintf("  Would remove %d duplicate jobs from queue: %s", dupes, key))
	} else {
		if _, err := o.R.Del(key); err != nil {
			return 0, fmt.Errorf("del %s: %w", key, err)
		}
		// LPUSH prepends, so push back to front to keep the list order.
		for i := len(unique) - 1; i >= 0; i-- {
			if _, err := o.R.LPush(key, unique[i]); err != nil {
				return 0, fmt.Errorf("lpush %s: %w", key, err)
			}
		}
		o.log(LinePlain, fmt.Sprintf("  Removed %d duplicate jobs from queue: %s", dupes, key))
	}

	o.report().record(Action{
		Phase:        PhaseQueueDupes,
		Key:          key,
		Description:  fmt.Sprintf("%d duplicate jobs", dupes),
		Count:        dupes,
		Hypothetical: o.DryRun,
	})
	return dupes, nil
}

// ClassifyLock maps a TTL reply to a lock state. A TTL of zero (expiring
// this second) is treated like a missing key.
func ClassifyLock(ttl int64) LockState {
	switch {
	case ttl == TTLNoExpiry:
		return LockNoExpiration
	case ttl > 0:
		return LockActive
	default:
		return LockAbsent
	}
}

func (o *SweepOps) lockMarker() string {
	if o.LockMarker == "" {
		return DefaultLockMarker
	}
	return o.LockMarker
}

// CleanupLocks deletes lock keys that carry no expiration. Locks with a TTL
// are reported and left alone.
func (o *SweepOps) CleanupLocks() (int, error) {
	if o.Locks == nil {
		return 0, ErrNoLockStore
	}

	all, err := o.Locks.Keys("*")
	if err != nil {
		return 0, fmt.Errorf("scan locks: %w", err)
	}

	marker := o.lockMarker()
	var lockKeys []string
	for _, key := range all {
		name := StripPrefix(key, o.LockPrefix)
		if strings.Contains(name, marker) {
			lockKeys = append(lockKeys, name)
		}
	}

	if len(lockKeys) == 0 {
		o.log(LineInfo, "  No cache locks found.")
		return 0, nil
	}

	o.report().LocksFound += len(lockKeys)
	o.log(LineInfo, fmt.Sprintf("  Found %d cache lock(s)", len(lockKeys)))

	cleaned := 0
	for _, key := range lockKeys {
		ttl, err := o.Locks.TTL(key)
		if err != nil {
			return cleaned, fmt.Errorf("ttl %s: %w", key, err)
		}

		switch ClassifyLock(ttl) {
		case LockNoExpiration:
			if err := o.remove(o.Locks, PhaseLocks, key, "STALE lock (no expiration): "+key); err != nil {
				return cleaned, err
			}
			cleaned++
		case LockActive:
			o.log(LinePlain, fmt.Sprintf("  Skipping active lock (expires in %ds): %s", ttl, key))
		}
	}

	if cleaned == 0 {
		o.log(LineInfo, "  No stale locks found (all locks have expiration set)")
	}
	return cleaned, nil
}
