package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan recomputes trial balances and flags imbalances.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskFiscalYearRoll advances fiscal year statuses past their end dates.
	TaskFiscalYearRoll = "fiscal_year:roll"
)

// IntegrityScanPayload scopes an integrity scan. An empty OrgIDs slice scans
// every organization with at least one account.
type IntegrityScanPayload struct {
	OrgIDs []int64 `json:"organization_ids,omitempty"`
}

// NewIntegrityScanTask constructs an Asynq task for the integrity scan.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// NewFiscalYearRollTask constructs an Asynq task for the fiscal year roll.
func NewFiscalYearRollTask() *asynq.Task {
	return asynq.NewTask(TaskFiscalYearRoll, nil)
}
