package main

import (
	"net/http"
	"time"

	server "github.com/bhoriuchi/graphql-ws"
	"github.com/bhoriuchi/graphql-ws/logger"
	"github.com/bhoriuchi/graphql-ws/metrics"
	"github.com/joeshaw/envdecode"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type config struct {
	Addr      string        `env:"ADDR,default=:3000"`
	KeepAlive time.Duration `env:"KEEPALIVE_INTERVAL,default=10s"`
}

func main() {
	var cfg config
	envdecode.MustDecode(&cfg)

	logFunc := logger.NewSimpleLogFunc(logger.TraceLevel)
	l := logger.NewLogWrapper(logFunc, nil)

	l.Infof("Building schema...")
	schema, err := buildSchema(l)
	if err != nil {
		l.WithError(err).Errorf("failed to build schema")
		return
	}

	srv := server.New(
		*schema,
		server.WithLogFunc(logFunc),
		server.WithKeepAlive(cfg.KeepAlive),
		server.WithMetrics(metrics.New(metrics.Config{})),
	)

	mux := http.NewServeMux()
	mux.Handle("/subscriptions", srv)
	mux.Handle("/metrics", promhttp.Handler())

	l.Infof("Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		l.WithError(err).Errorf("server exited")
	}
}
