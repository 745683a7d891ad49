package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_batches_scheduled_total",
		Help: "Total number of batch fetches scheduled",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_tasks_completed_total",
		Help: "Total number of fetch tasks that reached Complete",
	})

	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_tasks_failed_total",
		Help: "Total number of fetch tasks that ended in Error",
	})

	TasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_tasks_skipped_total",
		Help: "Total number of fetch tasks that ended in Skipped",
	})

	LLMCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_llm_calls_total",
		Help: "Total number of LLM extraction calls",
	})

	LLMCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsharvest_llm_call_duration_seconds",
		Help:    "LLM extraction call duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	CrawlDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsharvest_crawl_duration_seconds",
		Help:    "Source crawl duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	ItemsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_items_saved_total",
		Help: "Total number of news items persisted",
	})

	ItemsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsharvest_items_skipped_total",
		Help: "Total number of candidate items skipped as duplicates",
	})

	ConnectedObservers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsharvest_connected_observers",
		Help: "Number of currently connected progress observers",
	})
)
