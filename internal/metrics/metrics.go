package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const namespace = "tictactoe"

const (
	ResultX    = "x"
	ResultO    = "o"
	ResultDraw = "draw"
)

type Metrics struct {
	registry *prometheus.Registry

	ConnectionsActive prometheus.Gauge
	Moves             prometheus.Counter
	GamesFinished     *prometheus.CounterVec
	Errors            *prometheus.CounterVec
	RoomsEvicted      *prometheus.CounterVec
}

// New - collectors registered on a private registry, so tests can build as many as
// they need.
func New() *Metrics {
	that := &Metrics{
		registry: prometheus.NewRegistry(),

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open websocket connections",
		}),
		Moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Moves accepted",
		}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Rounds finished, by result",
		}, []string{"result"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors returned to clients, by kind",
		}, []string{"kind"}),
		RoomsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_evicted_total",
			Help:      "Rooms removed, by reason",
		}, []string{"reason"}),
	}

	that.registry.MustRegister(
		collectors.NewGoCollector(),
		that.ConnectionsActive,
		that.Moves,
		that.GamesFinished,
		that.Errors,
		that.RoomsEvicted,
	)

	return that
}

func (that *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(that.registry, promhttp.HandlerOpts{Registry: that.registry})
}

// ObserveRooms - exposes the live room count, read at scrape time.
func (that *Metrics) ObserveRooms(count func() int) {
	that.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Rooms currently held by the coordinator",
	}, func() float64 {
		return float64(count())
	}))
}

func (that *Metrics) GameFinished(winner string) {
	switch winner {
	case entity.PlayerX:
		that.GamesFinished.WithLabelValues(ResultX).Inc()
	case entity.PlayerO:
		that.GamesFinished.WithLabelValues(ResultO).Inc()
	default:
		that.GamesFinished.WithLabelValues(ResultDraw).Inc()
	}
}

func (that *Metrics) Error(kind string) {
	that.Errors.WithLabelValues(kind).Inc()
}

func (that *Metrics) Evicted(reason string) {
	that.RoomsEvicted.WithLabelValues(reason).Inc()
}
