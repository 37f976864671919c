package domain

// ItemResult is a sink's verdict on one submitted feature.
type ItemResult struct {
	Success  bool
	ObjectID int64
	Error    string
}

// BatchResult is a structured per-feature response from a sink. Sinks that
// cannot report per item return a nil *BatchResult, which counts the whole
// batch as succeeded.
type BatchResult struct {
	Items []ItemResult
}

// Succeeded counts the successful items.
func (r *BatchResult) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Success {
			n++
		}
	}
	return n
}

// UploadOutcome aggregates an upload. Every feature lands in exactly one of
// Succeeded or Failed.
type UploadOutcome struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Batches   int `json:"batches"`
}

// SuccessRate returns Succeeded/Total as a percentage, or 0 for an empty upload.
func (o UploadOutcome) SuccessRate() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Succeeded) / float64(o.Total) * 100
}
