package log

// Inner log events.
const (
	EventComponentStarted  = "component_started"
	EventComponentShutdown = "component_shutdown"
	EventPanic             = "panic"
	EventStoreInit         = "store_init"
	EventMSShutdown        = "ms_shutdown"
	EventCmdSent           = "cmd_sent"
	EventCmdSuppressed     = "cmd_suppressed"
	EventReportDiscarded   = "report_discarded"
	EventStatsPublished    = "stats_published"
	EventWSConnAdded       = "ws_conn_added"
	EventWSConnRemoved     = "ws_conn_removed"
	EventUpdConsulStatus   = "upd_consul_status"
)
