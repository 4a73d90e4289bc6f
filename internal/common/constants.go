package common

// Simulated time
const MINUTES_PER_DAY = 1440

// Model storage
const GLOBAL_SNAPSHOT_NAME = "global"
const SNAPSHOT_FILE_SUFFIX = "_model.json"
const AUDIT_LOG_FILE_NAME = "fedavg_log.json"

// Time series
const TIMESERIES_FILE_SUFFIX = ".csv"

// Aggregation
const MIN_PARTICIPANTS = 2

// Weight sources
const WEIGHT_SOURCE_SNAPSHOT = "snapshot"
const WEIGHT_SOURCE_TIMESERIES = "timeseries"

// Model store backends
const STORE_TYPE_FILE = "file"
const STORE_TYPE_MINIO = "minio"

// Telemetry
const DEFAULT_NATS_SUBJECT = "yantra.telemetry"

// Events
const AGENT_STOPPED_EVENT_TYPE = "AgentStopped"
const ROUND_FINISHED_EVENT_TYPE = "RoundFinished"

// Agent stop reasons
const AGENT_STOP_REASON_DONE = "DONE"
const AGENT_STOP_REASON_CANCELLED = "CANCELLED"
const AGENT_STOP_REASON_CRASHED = "CRASHED"
