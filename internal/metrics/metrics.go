package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TransfersIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transferscope_transfers_indexed_total",
		Help: "Transfer records handed to the sink",
	})
	Batches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferscope_batches_total",
		Help: "Processed batches by outcome",
	}, []string{"status"})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transferscope_batch_duration_seconds",
		Help:    "Time spent building and storing a batch",
		Buckets: prometheus.DefBuckets,
	})
	DecodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transferscope_decode_failures_total",
		Help: "Logs that matched the filter but failed to decode",
	})
	FilterMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transferscope_filter_mismatches_total",
		Help: "Logs delivered outside the requested address/topic filter",
	})
	ObserverFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transferscope_observer_failures_total",
		Help: "Observer calls that failed, timed out or panicked",
	}, []string{"reason"})
	LastIndexedBlock = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "transferscope_last_indexed_block",
		Help: "Highest block whose batch was committed",
	})
	RPCRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "transferscope_rpc_retries_total",
		Help: "Retried RPC calls",
	})
)

func init() {
	prometheus.MustRegister(
		TransfersIndexed,
		Batches,
		BatchDuration,
		DecodeFailures,
		FilterMismatches,
		ObserverFailures,
		LastIndexedBlock,
		RPCRetries,
	)
}

// ObserveBatch records the outcome of one batch.
func ObserveBatch(start time.Time, records int, err error) {
	BatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		Batches.WithLabelValues("error").Inc()
		return
	}
	Batches.WithLabelValues("ok").Inc()
	TransfersIndexed.Add(float64(records))
}
