// ctl2mimir is the entrypoint: it loads Settings, opens the store, and
// serves the GraphQL façade over HTTP (§6). Index creation spawns its
// driver+listener pair in the background (package driver) — the HTTP
// server itself never blocks on an FSM run.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	relay "github.com/graph-gophers/graphql-go/relay"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/crocme10/ctl2mimir/api"
	"github.com/crocme10/ctl2mimir/concurrency"
	"github.com/crocme10/ctl2mimir/config"
	"github.com/crocme10/ctl2mimir/jobs"
	"github.com/crocme10/ctl2mimir/store"
)

// maxConcurrentRuns bounds how many driver+listener pairs may be active at
// once, so a burst of createIndex mutations can't fork an unbounded number
// of external-process jobs (§5 "Shared resources").
const maxConcurrentRuns = 16

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := pflag.String("config-dir", "./config", "directory holding default/<mode>/local settings files")
	pflag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	settings, err := config.New(*configDir)
	if err != nil {
		return err
	}
	log.Infow("loaded settings", "mode", settings.Mode)

	st, err := store.Open(settings.Database.URL)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	schema, resolver, err := api.NewSchema(st, settings, jobs.NewHTTP(), log, maxConcurrentRuns)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.Handle("/graphql", &relay.Handler{Schema: schema}).Methods(http.MethodPost, http.MethodOptions)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	addr := fmt.Sprintf("%s:%d", settings.Service.Host, settings.Service.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	stop := concurrency.NewStopCh()
	errCh := make(chan error, 1)
	go func() {
		log.Infow("serving ctl2mimir", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		stop.Close()
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop.Listen():
		log.Info("shutting down")
		if resolver.Inflight.Count() > 0 {
			grace := make(chan struct{})
			time.AfterFunc(5*time.Second, func() { close(grace) })
			if timedOut, _ := resolver.Inflight.WaitTimeoutWithStop(grace, nil); timedOut {
				log.Warn("shutdown grace period elapsed with driver runs still in flight")
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
