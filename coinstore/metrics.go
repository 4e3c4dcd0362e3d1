// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinstore

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusUtxoInsert       prometheus.Counter
	prometheusUtxoSpend        prometheus.Counter
	prometheusUtxoQuery        prometheus.Counter
	prometheusUtxoQueryResults *prometheus.CounterVec
	prometheusContractAdd      prometheus.Counter
	prometheusEntropyInsert    prometheus.Counter
	prometheusStoreErrors      *prometheus.CounterVec

	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusUtxoInsert = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_utxo_insert",
			Help: "Number of outputs inserted into the coin store",
		},
	)
	prometheusUtxoSpend = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_utxo_spend",
			Help: "Number of outputs marked as spent in the coin store",
		},
	)
	prometheusUtxoQuery = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_utxo_query",
			Help: "Number of filters evaluated by the coin store",
		},
	)
	prometheusUtxoQueryResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinstore_utxo_query_results",
			Help: "Number of filter results by outcome",
		},
		[]string{
			"result", // found, insufficient_value or empty
		},
	)
	prometheusContractAdd = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_contract_add",
			Help: "Number of contracts registered in the coin store",
		},
	)
	prometheusEntropyInsert = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coinstore_entropy_insert",
			Help: "Number of asset entropies registered in the coin store",
		},
	)
	prometheusStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinstore_errors",
			Help: "Number of coin store errors",
		},
		[]string{
			"function", // function raising the error
			"code",     // error code returned
		},
	)
}

// recordError counts a failed operation by its error code.
func recordError(function string, err error) {
	if err == nil {
		return
	}

	code := "unknown"
	var storeErr StoreError
	if errors.As(err, &storeErr) {
		code = storeErr.ErrorCode.String()
	}
	prometheusStoreErrors.WithLabelValues(function, code).Inc()
}
