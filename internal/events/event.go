package events

import (
	"time"
)

type Kind string

const (
	KindSubmitted   Kind = "contribution.submitted"
	KindApproved    Kind = "contribution.approved"
	KindRejected    Kind = "contribution.rejected"
	KindResubmitted Kind = "contribution.resubmitted"
	KindBatchDone   Kind = "batch.ingested"
)

// LifecycleEvent is published after a lifecycle action or a batch commits.
type LifecycleEvent struct {
	Kind           Kind      `json:"kind"`
	TaskID         string    `json:"taskId,omitempty"`
	ContributionID string    `json:"contributionId,omitempty"`
	WorkerID       string    `json:"workerId,omitempty"`
	ReviewerID     string    `json:"reviewerId,omitempty"`
	TaskStatus     string    `json:"taskStatus,omitempty"`
	Status         string    `json:"status,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	BatchID        string    `json:"batchId,omitempty"`
	Created        int       `json:"created,omitempty"`
	Failed         int       `json:"failed,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Key picks the partition key so events of one contribution stay ordered.
func (e LifecycleEvent) Key() string {
	switch {
	case e.ContributionID != "":
		return e.ContributionID
	case e.TaskID != "":
		return e.TaskID
	default:
		return e.BatchID
	}
}
