package output

import "time"

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type EventName string

const (
	EventBatchStarted  EventName = "batch_started"
	EventItemWaiting   EventName = "item_waiting"
	EventItemStarted   EventName = "item_started"
	EventItemFinished  EventName = "item_finished"
	EventItemFailed    EventName = "item_failed"
	EventBatchFinished EventName = "batch_finished"

	EventSearchResults   EventName = "search_results"
	EventSearchSelected  EventName = "search_selected"
	EventSearchNotFound  EventName = "search_not_found"
	EventDownloadPlanned EventName = "download_planned"
	EventDownloadDone    EventName = "download_finished"
	EventRateLimited     EventName = "rate_limited"
	EventMetadata        EventName = "metadata"
	EventSimilarFound    EventName = "similar_found"
	EventDuplicate       EventName = "duplicate_resolved"
	EventRecordSaved     EventName = "record_saved"
	EventRecordFailed    EventName = "record_failed"
	EventProbe           EventName = "probe"
)

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Event     EventName      `json:"event"`
	BatchID   string         `json:"batch_id,omitempty"`
	ItemIndex int            `json:"item_index,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}
