package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge outcomes.
const (
	MergeOutcomeReassigned = "reassigned"
	MergeOutcomeCollapsed  = "collapsed"
	MergeOutcomeFailed     = "failed"
)

// WishlistMetrics counts wishlist mutations and merge work.
type WishlistMetrics struct {
	added         *prometheus.CounterVec
	removed       prometheus.Counter
	mergeRows     *prometheus.CounterVec
	mergeDuration prometheus.Histogram
}

// NewWishlistMetrics registers the wishlist metrics. A nil registerer yields a
// no-op recorder.
func NewWishlistMetrics(reg prometheus.Registerer) *WishlistMetrics {
	if reg == nil {
		return &WishlistMetrics{}
	}
	added := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_items_added_total",
		Help: "Products added to a wishlist.",
	}, []string{"owner_kind"})
	removed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wishlist_items_removed_total",
		Help: "Products removed from a user wishlist.",
	})
	mergeRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wishlist_merge_rows_total",
		Help: "Guest rows handled by merge-on-login, by outcome.",
	}, []string{"outcome"})
	mergeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wishlist_merge_duration_seconds",
		Help:    "Duration of guest to user merges.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(added, removed, mergeRows, mergeDuration)
	return &WishlistMetrics{
		added:         added,
		removed:       removed,
		mergeRows:     mergeRows,
		mergeDuration: mergeDuration,
	}
}

func (m *WishlistMetrics) ItemAdded(ownerKind string) {
	if m == nil || m.added == nil {
		return
	}
	m.added.WithLabelValues(normalizeLabel(ownerKind)).Inc()
}

func (m *WishlistMetrics) ItemRemoved() {
	if m == nil || m.removed == nil {
		return
	}
	m.removed.Inc()
}

// MergeRows adds n rows under the given outcome. Zero is ignored.
func (m *WishlistMetrics) MergeRows(outcome string, n int) {
	if m == nil || m.mergeRows == nil || n <= 0 {
		return
	}
	m.mergeRows.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

func (m *WishlistMetrics) ObserveMerge(d time.Duration) {
	if m == nil || m.mergeDuration == nil {
		return
	}
	m.mergeDuration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
