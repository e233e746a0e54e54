package sweepq

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SweepOpts struct {
	DryRun          bool
	SkipOverlapping bool
	ClearLocks      bool

	Verbose bool
	Logger  CleanupLogger
	Metrics *Metrics
}

func applySweepDefaults(opts *SweepOpts) {
	if opts.Logger == nil {
		opts.Logger = DefaultCleanupLogger
	}
}

// runSweep executes one full reconciliation: the key pass, the queue pass
// and, when asked, the lock pass. The first store error aborts the run and
// is returned with the partial report.
func runSweep(base *SweepOps, opts SweepOpts) (*Report, error) {
	applySweepDefaults(&opts)
	if base.R == nil {
		return nil, ErrNoStore
	}

	report := &Report{RunID: uuid.NewString(), DryRun: opts.DryRun}
	ops := *base
	ops.DryRun = opts.DryRun
	ops.Verbose = opts.Verbose
	ops.Logger = opts.Logger
	ops.Report = report

	started := time.Now()

	if opts.DryRun {
		ops.log(LineInfo, "DRY RUN MODE - No data will be deleted")
	}
	ops.debug(fmt.Sprintf("Run %s", report.RunID))

	if err := sweepKeys(&ops); err != nil {
		return report, err
	}

	if !opts.SkipOverlapping {
		ops.log(LineInfo, "Cleaning up overlapping queues...")
		if err := sweepQueues(&ops); err != nil {
			return report, err
		}
	}

	if opts.ClearLocks {
		ops.log(LineInfo, "Cleaning up stale cache locks...")
		if _, err := ops.CleanupLocks(); err != nil {
			return report, err
		}
	}

	ops.log(LineInfo, report.Summary())

	if opts.Metrics != nil {
		opts.Metrics.Observe(report, time.Since(started))
	}
	return report, nil
}

func (o *SweepOps) scanNames() ([]string, error) {
	keys, err := o.R.Keys("*")
	if err != nil {
		return nil, fmt.Errorf("scan keys: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, StripPrefix(k, o.Prefix))
	}
	return names, nil
}

func sweepKeys(o *SweepOps) error {
	names, err := o.scanNames()
	if err != nil {
		return err
	}
	o.Report.TotalKeys = len(names)
	o.log(LineInfo, fmt.Sprintf("Scanning %d keys for cleanup...", len(names)))

	for _, name := range names {
		if _, err := o.ProcessKey(name); err != nil {
			return err
		}
	}
	return nil
}

// sweepQueues enumerates the keyspace again; keys removed by the key pass
// are simply seen as absent here.
func sweepQueues(o *SweepOps) error {
	names, err := o.scanNames()
	if err != nil {
		return err
	}

	groups := GroupQueueKeys(names)
	found := 0
	for _, g := range groups {
		found += len(g.Keys)
	}
	o.Report.QueueKeysFound = found
	o.Report.QueueGroups = len(groups)
	o.log(LineInfo, fmt.Sprintf("Found %d queue-related keys", found))

	for _, g := range groups {
		if len(g.Keys) > 1 {
			if _, err := o.DeduplicateGroup(g.Base, g.Keys); err != nil {
				return err
			}
		}
		for _, key := range g.Keys {
			if _, err := o.DeduplicateContents(key); err != nil {
				return err
			}
		}
	}
	return nil
}
