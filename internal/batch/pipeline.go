package batch

import (
	"context"

	"github.com/ondc-data/geo-enricher/internal/models"
)

// ItemState classifies a data row when the dataset is loaded.
type ItemState int

const (
	// StatePending means the row still needs processing.
	StatePending ItemState = iota
	// StateDone means the row already carries output and is skipped.
	StateDone
	// StateNoData means the row lacks the inputs this flow needs.
	StateNoData
)

// Pipeline is one enrichment flow over a dataset. The orchestrator owns all
// shared state: LoadItem and Merge are called from the merge goroutine only,
// while Process runs concurrently on worker goroutines and must not touch
// the dataset.
type Pipeline interface {
	// Flow names the pipeline for logs, metrics and the run summary.
	Flow() string

	// RequiredColumns lists input headers the dataset must already have.
	RequiredColumns() []string

	// OutputColumns lists headers the orchestrator creates before the run.
	OutputColumns() []string

	// LoadItem classifies one sheet row. The returned item is non-nil only
	// for StatePending.
	LoadItem(row int) (*models.WorkItem, ItemState, error)

	// Process enriches one item. It returns nil when the item went
	// unprocessed because the context was cancelled, so an interrupted run
	// never marks untouched rows as failures.
	Process(ctx context.Context, item *models.WorkItem) *models.EnrichmentResult

	// Merge writes one result back into the dataset.
	Merge(res *models.EnrichmentResult) error
}
