// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package claim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type resolverMetrics struct {
	claimsTotal       prometheus.Counter
	rejectionsTotal   *prometheus.CounterVec
	prizesDrawnTotal  *prometheus.CounterVec
	deliveryFailTotal prometheus.Counter
	persistFailTotal  prometheus.Counter
}

func (r *Resolver) initMetrics(promRegistry prometheus.Registerer) {
	r.metrics = &resolverMetrics{
		claimsTotal: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "lootcrate_claims_resolved_total",
				Help: "total claims resolved successfully",
			},
		),
		rejectionsTotal: promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lootcrate_claim_rejections_total",
				Help: "total claims rejected by pipeline stage",
			},
			[]string{"stage"},
		),
		prizesDrawnTotal: promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lootcrate_prizes_drawn_total",
				Help: "total prizes drawn by category",
			},
			[]string{"category"},
		),
		deliveryFailTotal: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "lootcrate_delivery_failures_total",
				Help: "total prize deliveries that failed and were recorded for retry",
			},
		),
		persistFailTotal: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "lootcrate_persistence_failures_total",
				Help: "total purchase records that failed to persist",
			},
		),
	}
}
