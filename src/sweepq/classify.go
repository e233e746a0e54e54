package sweepq

import "strings"

type namePattern struct {
	substr   string
	category Category
	label    string
}

// Matched by substring, in order; first match wins.
var namePatterns = []namePattern{
	{"recent_jobs", CategoryRecentJobs, "Recent jobs list"},
	{"failed_jobs", CategoryFailedJobs, "Failed jobs list"},
	{"completed_jobs", CategoryCompletedJobs, "Completed jobs list"},
	{"job_classes", CategoryJobClassMetrics, "Job classes metrics"},
	{"queues", CategoryQueueMetrics, "Queue metrics"},
	{"processes", CategoryProcessMetrics, "Process metrics"},
	{"supervisors", CategorySupervisorData, "Supervisor data"},
	{"metrics", CategoryGeneralMetrics, "General metrics"},
	{"workload", CategoryWorkloadData, "Workload data"},
}

// Classify decides the category of an unprefixed key name given its store
// type. Hashes are always job records; everything else is matched by name.
func Classify(name string, t KeyType) Category {
	if t == TypeHash {
		return CategoryJobHash
	}
	for _, p := range namePatterns {
		if strings.Contains(name, p.substr) {
			return p.category
		}
	}
	if HasTimestamp(name) {
		return CategoryTimestamped
	}
	return CategoryUnclassified
}

// Describe returns the console label for a category.
func (c Category) Describe() string {
	for _, p := range namePatterns {
		if p.category == c {
			return p.label
		}
	}
	switch c {
	case CategoryJobHash:
		return "job"
	case CategoryTimestamped:
		return "old timestamped data"
	}
	return string(c)
}

// PatternMatched reports whether the category came from a name label and is
// therefore always regenerable.
func (c Category) PatternMatched() bool {
	for _, p := range namePatterns {
		if p.category == c {
			return true
		}
	}
	return false
}
