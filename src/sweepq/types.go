package sweepq

// KeyType is the store-level type of a key as reported by TYPE.
type KeyType int

const (
	TypeNone KeyType = iota
	TypeString
	TypeList
	TypeSet
	TypeZSet
	TypeHash
	TypeOther
)

func (t KeyType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeHash:
		return "hash"
	default:
		return "other"
	}
}

// ParseKeyType maps a TYPE reply to a KeyType. Unknown replies (stream,
// module types) map to TypeOther.
func ParseKeyType(s string) KeyType {
	switch s {
	case "none", "":
		return TypeNone
	case "string":
		return TypeString
	case "list":
		return TypeList
	case "set":
		return TypeSet
	case "zset":
		return TypeZSet
	case "hash":
		return TypeHash
	default:
		return TypeOther
	}
}

// Collection reports whether the type has a cardinality (list, set, zset).
func (t KeyType) Collection() bool {
	return t == TypeList || t == TypeSet || t == TypeZSet
}

type Category string

const (
	CategoryJobHash         Category = "job-hash"
	CategoryRecentJobs      Category = "recent-jobs"
	CategoryFailedJobs      Category = "failed-jobs"
	CategoryCompletedJobs   Category = "completed-jobs"
	CategoryJobClassMetrics Category = "job-class-metrics"
	CategoryQueueMetrics    Category = "queue-metrics"
	CategoryProcessMetrics  Category = "process-metrics"
	CategorySupervisorData  Category = "supervisor-data"
	CategoryGeneralMetrics  Category = "general-metrics"
	CategoryWorkloadData    Category = "workload-data"
	CategoryTimestamped     Category = "timestamped-data"
	CategoryUnclassified    Category = "unclassified"
)

type LockState int

const (
	LockAbsent LockState = iota
	LockNoExpiration
	LockActive
)

// Phase identifies which pass of a run produced an action.
type Phase string

const (
	PhaseKeys       Phase = "keys"
	PhaseQueueGroup Phase = "queue_group"
	PhaseQueueDupes Phase = "queue_contents"
	PhaseLocks      Phase = "locks"
)

// Action is one deletion (or would-be deletion) taken during a run.
type Action struct {
	Phase        Phase
	Key          string
	Description  string
	Count        int
	Hypothetical bool
}

// Report is the aggregate outcome of one run. Deleted counts keys removed
// by the key, group and lock phases plus duplicate list entries removed.
type Report struct {
	RunID  string
	DryRun bool

	TotalKeys int
	Deleted   int

	KeysDeleted       int
	QueueKeysFound    int
	QueueGroups       int
	GroupKeysDeleted  int
	DuplicatesRemoved int
	LocksFound        int
	LocksDeleted      int

	Actions []Action
}

func (r *Report) record(a Action) {
	r.Actions = append(r.Actions, a)
	switch a.Phase {
	case PhaseKeys:
		r.KeysDeleted += a.Count
	case PhaseQueueGroup:
		r.GroupKeysDeleted += a.Count
	case PhaseQueueDupes:
		r.DuplicatesRemoved += a.Count
	case PhaseLocks:
		r.LocksDeleted += a.Count
	}
	r.Deleted += a.Count
}
