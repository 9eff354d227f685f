//
// Tencent is pleased to support the open source community by making graphflow available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// graphflow is licensed under the Apache License Version 2.0.
//
//

// Command graphflowd serves the workflow engine over HTTP with the sample
// code-review tools and example graph registered at startup.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/THE-DEVIL-19/graphflow/engine"
	"github.com/THE-DEVIL-19/graphflow/log"
	"github.com/THE-DEVIL-19/graphflow/server/workflow"
	"github.com/THE-DEVIL-19/graphflow/storage/inmemory"
	"github.com/THE-DEVIL-19/graphflow/telemetry/trace"
	"github.com/THE-DEVIL-19/graphflow/tool"
	"github.com/THE-DEVIL-19/graphflow/tool/codereview"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	logLevel := flag.String("log-level", log.LevelInfo, "log level (debug, info, warn, error, fatal)")
	maxSteps := flag.Int("max-steps", 100, "maximum tool executions per run")
	workers := flag.Int("workers", 64, "worker pool size for async runs")
	tracing := flag.Bool("tracing", false, "export traces via OTLP HTTP")
	flag.Parse()

	log.SetLevel(*logLevel)

	ctx := context.Background()
	if *tracing {
		clean, err := trace.Start(ctx, trace.WithServiceName("graphflowd"))
		if err != nil {
			log.Fatalf("failed to start tracing: %v", err)
		}
		defer func() {
			if err := clean(); err != nil {
				log.Errorf("failed to stop tracing: %v", err)
			}
		}()
	}

	graphs := inmemory.NewGraphStore()
	runs := inmemory.NewRunStore()
	registry := tool.NewRegistry()

	codereview.Register(registry)
	if _, err := graphs.Put(codereview.NewGraph()); err != nil {
		log.Fatalf("failed to register example graph: %v", err)
	}

	eng, err := engine.New(graphs, runs, registry,
		engine.WithMaxSteps(*maxSteps),
		engine.WithWorkerPoolSize(*workers))
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}
	defer eng.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           workflow.New(graphs, runs, eng).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("graphflowd listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
