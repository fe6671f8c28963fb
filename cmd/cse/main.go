/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command cse starts the CSE core process: it loads configuration, wires
// every collaborator package together, seeds the CSEBase resource, starts
// the expiration-sweep worker, serves Prometheus metrics, and blocks
// until it receives an interrupt.
//
// Binding the oneM2M Mca/Mcc HTTP and MQTT endpoints themselves is out of
// scope (spec.md's Non-goals) — internal/transport's HTTPPoster is the
// outbound half only. This entrypoint exists so the core can actually run
// and be driven in-process (e.g. by a future transport binding or by
// integration tests), and so the expiration monitor and metrics endpoint
// have somewhere to live.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/accesscontrol"
	"github.com/onem2m-labs/cse-core/internal/announcement"
	"github.com/onem2m-labs/cse-core/internal/config"
	"github.com/onem2m-labs/cse-core/internal/dispatcher"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/idgen"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/metrics"
	"github.com/onem2m-labs/cse-core/internal/notification"
	"github.com/onem2m-labs/cse-core/internal/profiling"
	"github.com/onem2m-labs/cse-core/internal/registration"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
	"github.com/onem2m-labs/cse-core/internal/storage/memstore"
	"github.com/onem2m-labs/cse-core/internal/tlsconfig"
	"github.com/onem2m-labs/cse-core/internal/transport"
	"github.com/onem2m-labs/cse-core/internal/worker"
	"github.com/onem2m-labs/cse-core/pkg/feature"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file overlaying the defaults")
	development := flag.Bool("development", false, "use a development (human-readable) log encoder")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on; overrides config")
	certsDir := flag.String("certs-dir", "", "directory holding ca.crt/tls.crt/tls.key for the Mcc reference point; enables mutual TLS when set")
	pprofAddr := flag.String("pprof-addr", "", "address to serve net/http/pprof debug endpoints on; disabled when empty")
	flag.Parse()

	logging.SetLogger(logging.ZapLogger(*development, false))
	log := logging.NewLogger("cse")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Fprint(err.Error())
		os.Exit(1)
	}

	cseType, err := cfg.ParsedCSEType()
	if err != nil {
		logging.Fprint(err.Error())
		os.Exit(1)
	}

	if *metricsAddr != "" {
		cfg.Transport.HTTPAddr = *metricsAddr
	}

	store := memstore.New()
	bus := eventbus.New(log)
	ac := accesscontrol.New(store, cfg.CSEOriginator)

	reg, err := registration.New(store, bus, log, cfg.Registration, cfg.CSEOriginator, cfg.CSERn, cseType, cfg.ACP.PVSACOP)
	if err != nil {
		logging.Fprint(err.Error())
		os.Exit(1)
	}

	var serverTLS *tls.Config
	poster := transport.NewHTTPPoster(10 * time.Second)
	if *certsDir != "" {
		clientTLS, err := tlsconfig.Load(*certsDir, false)
		if err != nil {
			logging.Fprint(err.Error())
			os.Exit(1)
		}
		poster = transport.NewHTTPPosterWithTLS(10*time.Second, clientTLS)

		serverTLS, err = tlsconfig.Load(*certsDir, true)
		if err != nil {
			logging.Fprint(err.Error())
			os.Exit(1)
		}
	}

	notif := notification.New(store, bus, poster, worker.Limiter(50, 10), nil, log)
	annc := announcement.New(store, poster, log)

	flags := cfg.ParsedFlags()

	promReg := prometheus.NewRegistry()
	rec := metrics.New(promReg, bus)
	if flags.Enabled(feature.EnableDeliveryMetrics) {
		notif.SetMetrics(rec)
		annc.SetMetrics(rec)
	}

	cseRI := idgen.ResourceID("cse")
	d := dispatcher.New(store, bus, ac, reg, notif, annc, log, cseRI, cfg.CSERn)
	d.SetFeatures(flags)
	reg.SetDispatcher(d)

	if err := seedCSEBase(store, cfg, cseRI); err != nil {
		logging.Fprint(err.Error())
		os.Exit(1)
	}

	pool := worker.NewPool(log)
	reg.StartExpirationMonitor(pool, time.Duration(cfg.CheckExpirationsInterval)*time.Second)

	var profServer *profiling.Server
	if *pprofAddr != "" {
		profServer = profiling.NewServer(log, *pprofAddr)
		profServer.Start()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.Transport.HTTPAddr, Handler: mux, TLSConfig: serverTLS}

	go func() {
		var err error
		if serverTLS != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Info("metrics server stopped", "error", err.Error())
		}
	}()

	log.Info("cse started", "cseRI", cseRI, "cseRn", cfg.CSERn, "cseType", cfg.CSEType, "metricsAddr", cfg.Transport.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if profServer != nil {
		profServer.Stop()
	}
	pool.StopAll(10 * time.Second)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(afero.NewOsFs(), path)
}

// seedCSEBase persists the CSEBase resource itself: every other
// operation (structured-path resolution, the registration manager's
// internal-ACP bookkeeping) assumes it already exists in storage at
// cseRI.
func seedCSEBase(store storage.Store, cfg *config.Config, cseRI string) error {
	cse := resource.New(onem2m.TypeCSEBase)
	cse.SetRI(cseRI)
	cse.SetRN(cfg.CSERn)
	cse.SetAttr("csi", "/"+cfg.CSERn)
	now := idgen.Now()
	cse.SetCT(now)
	cse.SetLT(now)
	return store.Create(context.Background(), cse)
}
