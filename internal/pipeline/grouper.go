package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/printops/labelflow/internal/queue"
)

// Batch is a non-empty run of queue rows sharing one batch id, delivered as
// a single artifact.
type Batch struct {
	ID   string
	Rows []queue.Row
}

// Site returns the batch's site, taken from its first row. Meaningful only
// once CheckSites has passed.
func (b Batch) Site() string {
	return b.Rows[0].Site
}

// RowIDs returns the remote ids of all rows in the batch.
func (b Batch) RowIDs() []int64 {
	ids := make([]int64, 0, len(b.Rows))
	for _, r := range b.Rows {
		ids = append(ids, r.ID)
	}
	return ids
}

// GroupRows partitions the fetched rows by batch id. Batch order follows the
// first occurrence of each id in the fetched set, not sort order.
func GroupRows(rows []queue.Row) []Batch {
	index := make(map[string]int)
	var batches []Batch

	for _, r := range rows {
		i, ok := index[r.BatchID]
		if !ok {
			i = len(batches)
			index[r.BatchID] = i
			batches = append(batches, Batch{ID: r.BatchID})
		}
		batches[i].Rows = append(batches[i].Rows, r)
	}

	return batches
}

// CheckSites enforces the single-site-per-batch invariant. A violation is a
// batch-level failure with no failing row attached.
func CheckSites(b Batch) (bool, string) {
	seen := make(map[string]struct{})
	for _, r := range b.Rows {
		seen[r.Site] = struct{}{}
	}
	if len(seen) <= 1 {
		return true, ""
	}

	sites := make([]string, 0, len(seen))
	for s := range seen {
		sites = append(sites, s)
	}
	sort.Strings(sites)

	return false, fmt.Sprintf("Batch has multiple sites: %s", strings.Join(sites, ", "))
}
