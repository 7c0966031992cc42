// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus is the lifecycle state of a RunRecord.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunTimeout RunStatus = "timeout"
	RunFailed  RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunSuccess || s == RunTimeout || s == RunFailed
}

// RunRecord is one ingestion attempt. It is created running and finalized
// exactly once.
type RunRecord struct {
	ID               int64     `json:"id" yaml:"id"`
	UUID             string    `json:"uuid" yaml:"uuid"`
	Scope            Scope     `json:"scope" yaml:"scope"`
	ModeName         string    `json:"mode_name" yaml:"mode_name"`
	SourcesKey       string    `json:"sources_key" yaml:"sources_key"`
	ResolvedDaysBack int       `json:"resolved_days_back" yaml:"resolved_days_back"`
	ForceFullRefresh bool      `json:"force_full_refresh" yaml:"force_full_refresh"`
	StartedAt        time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	Status           RunStatus `json:"status" yaml:"status"`
	IngestedCount    int       `json:"ingested_count" yaml:"ingested_count"`
	DedupedCount     int       `json:"deduped_count" yaml:"deduped_count"`
	ErrorText        string    `json:"error_text,omitempty" yaml:"error_text,omitempty"`
}

// RunOutcome is what the orchestrator reports back to its caller.
type RunOutcome struct {
	RunID             int64     `json:"run_id" yaml:"run_id"`
	RunUUID           string    `json:"run_uuid,omitempty" yaml:"run_uuid,omitempty"`
	Scope             Scope     `json:"scope" yaml:"scope"`
	Status            RunStatus `json:"status" yaml:"status"`
	IngestedCount     int       `json:"ingested_count" yaml:"ingested_count"`
	DedupedCount      int       `json:"deduped_count" yaml:"deduped_count"`
	TimedOut          bool      `json:"timed_out" yaml:"timed_out"`
	Reason            string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	EffectiveDaysBack int       `json:"effective_days_back" yaml:"effective_days_back"`
	ConnectorErrors   []string  `json:"connector_errors,omitempty" yaml:"connector_errors,omitempty"`
}
