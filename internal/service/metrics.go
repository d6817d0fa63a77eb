package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "orders_created_total",
		Help:      "Orders placed.",
	})

	ordersPaid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "orders_paid_total",
		Help:      "Mark-paid calls that succeeded, re-payments included.",
	})

	ordersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "orders_delivered_total",
		Help:      "Orders transitioned to delivered.",
	})

	booksSold = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "books_sold_total",
		Help:      "Copies credited to sales counters on delivery.",
	})

	reviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "reviews_created_total",
		Help:      "Reviews accepted.",
	})

	rankingCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookify",
		Name:      "ranking_cache_requests_total",
		Help:      "Ranking cache lookups by list and result (hit, miss, error).",
	}, []string{"list", "result"})
)
