package domain

// BatchFetchRequest represents the request body for scheduling a batch fetch.
type BatchFetchRequest struct {
	SourceIDs []string `json:"source_ids" validate:"required,min=1,max=50,dive,required"`
}

// BatchFetchResponse acknowledges an accepted batch with its task-group id.
// Actual success or failure is only knowable from the progress stream.
type BatchFetchResponse struct {
	TaskGroupID string `json:"task_group_id"`
	Status      string `json:"status"`
}

// BatchStatusResponse is a snapshot of every member task of a batch.
type BatchStatusResponse struct {
	TaskGroupID string      `json:"task_group_id"`
	Tasks       []FetchTask `json:"tasks"`
}
