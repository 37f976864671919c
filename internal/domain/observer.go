package domain

// Observer receives progress reports from the expansion, conversion and
// upload stages. Implementations must not retain the arguments.
type Observer interface {
	TableExpanded(rowsIn, rowsOut int)
	FeaturesConverted(converted, skipped int)
	BatchUploaded(report BatchReport)
}

// BatchReport describes one attempted batch submission.
type BatchReport struct {
	Index     int // zero-based chunk index
	Offset    int // index of the chunk's first feature
	Size      int
	Succeeded int
	Failed    int
	Err       error // submission error; the whole chunk counts as failed
}

// NopObserver discards every report.
type NopObserver struct{}

func (NopObserver) TableExpanded(int, int)     {}
func (NopObserver) FeaturesConverted(int, int) {}
func (NopObserver) BatchUploaded(BatchReport)  {}
