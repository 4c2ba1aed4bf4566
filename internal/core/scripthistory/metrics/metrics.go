// Package metrics 脚本历史索引的 Prometheus 指标
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 指标注册到默认 Registry，由 /metrics 统一抓取。
// 首次更新时注册，未使用索引的进程不会暴露这些指标。

var (
	metricsOnce sync.Once

	indexedHeightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scriptindex",
		Subsystem: "sync",
		Name:      "indexed_height",
		Help:      "Height of the last block applied to the script history index.",
	})

	blocksCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptindex",
		Subsystem: "sync",
		Name:      "blocks_total",
		Help:      "Blocks applied to or removed from the index.",
	}, []string{"op"})

	entriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptindex",
		Subsystem: "sync",
		Name:      "entries_total",
		Help:      "History entries written or removed.",
	}, []string{"op"})

	haltedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scriptindex",
		Subsystem: "sync",
		Name:      "halted",
		Help:      "1 when the syncer stopped after a storage or ordering failure.",
	})

	queryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptindex",
		Subsystem: "query",
		Name:      "requests_total",
		Help:      "Confirmed history queries by result (ok, invalid, error).",
	}, []string{"result"})

	queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scriptindex",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Latency of confirmed history queries.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

// 操作与结果标签
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"

	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(
			indexedHeightGauge,
			blocksCounter,
			entriesCounter,
			haltedGauge,
			queryCounter,
			queryDuration,
		)
	})
}

// ObserveConnect 记录一次区块连接
func ObserveConnect(height uint32, entries int) {
	initMetrics()
	indexedHeightGauge.Set(float64(height))
	blocksCounter.WithLabelValues(OpConnect).Inc()
	entriesCounter.WithLabelValues(OpConnect).Add(float64(entries))
}

// ObserveDisconnect 记录一次区块断开，newHeight 为回退后的链尖高度
func ObserveDisconnect(newHeight uint32, entries int) {
	initMetrics()
	indexedHeightGauge.Set(float64(newHeight))
	blocksCounter.WithLabelValues(OpDisconnect).Inc()
	entriesCounter.WithLabelValues(OpDisconnect).Add(float64(entries))
}

// SetHalted 标记同步已停止
func SetHalted(halted bool) {
	initMetrics()
	if halted {
		haltedGauge.Set(1)
		return
	}
	haltedGauge.Set(0)
}

// ObserveQuery 记录一次查询
func ObserveQuery(result string, elapsed time.Duration) {
	initMetrics()
	queryCounter.WithLabelValues(result).Inc()
	queryDuration.Observe(elapsed.Seconds())
}
