package models

const StatusInQueue = "inqueue"

type Submission struct {
	DataId        string `json:"data_id"`
	Status        string `json:"status"`
	InQueue       int    `json:"in_queue"`
	QueuePriority string `json:"queue_priority"`
	Sha256        string `json:"sha256"`
}
