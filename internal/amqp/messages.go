package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"riel/internal/core"
)

// ReportJob asks a reporter to build the export for one owner and period.
// It carries only the owner and the period kind; the reporter resolves the
// concrete window against the configured timezone when it runs the job.
type ReportJob struct {
	OwnerID  string    `json:"owner_id"`
	Period   string    `json:"period"`
	IssuedAt time.Time `json:"issued_at"`
}

func NewReportJob(ownerID string, kind core.PeriodKind) *ReportJob {
	return &ReportJob{
		OwnerID:  ownerID,
		Period:   string(kind),
		IssuedAt: time.Now(),
	}
}

// Kind parses the period field back into a period kind.
func (j *ReportJob) Kind() (core.PeriodKind, error) {
	return core.ParsePeriod(j.Period)
}

// ToJSON converts the job to JSON bytes.
func (j *ReportJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ReportJobFromJSON creates a job from JSON bytes.
func ReportJobFromJSON(data []byte) (*ReportJob, error) {
	var job ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal report job: %w", err)
	}
	if job.OwnerID == "" {
		return nil, fmt.Errorf("report job missing owner id")
	}
	if _, err := job.Kind(); err != nil {
		return nil, err
	}
	return &job, nil
}
