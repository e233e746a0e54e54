package sweepq

import internal "github.com/not-empty/sweepq-go/src/sweepq"

type Client = internal.Client
type ClientOpts = internal.ClientOpts
type SweepOpts = internal.SweepOpts
type Report = internal.Report
type Config = internal.Config
type Metrics = internal.Metrics
type CleanupLogger = internal.CleanupLogger
type LineKind = internal.LineKind

const (
	LinePlain = internal.LinePlain
	LineInfo  = internal.LineInfo
	LineWarn  = internal.LineWarn
)

var NewClient = internal.NewClient
var NewMetrics = internal.NewMetrics
var LoadConfig = internal.LoadConfig
var ConfigFromEnv = internal.ConfigFromEnv
var DefaultCleanupLogger = internal.DefaultCleanupLogger
