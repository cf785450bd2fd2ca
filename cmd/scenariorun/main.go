package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/eneucereHGAC/RDR-Public/core"
	"github.com/eneucereHGAC/RDR-Public/internal/logging"
	"github.com/eneucereHGAC/RDR-Public/internal/observability"
	"github.com/eneucereHGAC/RDR-Public/model"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCENARIORUN_CONFIG"), "path to the JSON run configuration")
	socio := flag.String("socio", "", "socio-economic scenario id, e.g. base, urban, baseyear")
	projGroup := flag.String("projgroup", "", "project group id, e.g. 04")
	resil := flag.String("resil", "no", "resilience project id (\"no\" = baseline)")
	elasticity := flag.Float64("elasticity", 0, "non-positive trip-loss elasticity")
	hazard := flag.String("hazard", "", "hazard event id, e.g. 100yr3SLR")
	recovery := flag.String("recovery", "0", "recovery stage depth")
	miniEq := flag.Bool("minieq", false, "run the secondary mini-equilibrium pass in the disrupted solve")
	matrix := flag.String("matrix", model.MatrixFull, "trip table selector: matrix or nocar")
	metricsListen := flag.String("metrics-listen", "", "optional address to serve /metrics on, e.g. :9090")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *configPath == "" {
		log.Error(ctx, "no run configuration; set -config or SCENARIORUN_CONFIG")
		os.Exit(2)
	}
	cfg, err := core.LoadRunConfig(*configPath)
	if err != nil {
		log.Error(ctx, "loading run configuration failed", logging.String("error", err.Error()))
		os.Exit(2)
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "initialising tracing failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	metrics, err := observability.NewRunCollector(nil)
	if err != nil {
		log.Error(ctx, "registering metrics failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *metricsListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(*metricsListen, mux); err != nil {
				log.Warn(ctx, "metrics listener stopped", logging.String("error", err.Error()))
			}
		}()
	}

	scen := model.Scenario{
		Socio:      *socio,
		ProjGroup:  *projGroup,
		Resil:      *resil,
		Elasticity: *elasticity,
		Hazard:     *hazard,
		Recovery:   *recovery,
		RunMiniEq:  *miniEq,
		MatrixName: *matrix,
	}

	engine := &core.CommandEngine{
		BaseCmd:    cfg.BaseSolveCommand,
		DisruptCmd: cfg.DisruptSolveCommand,
		Log:        log,
	}
	orch := core.NewOrchestrator(cfg, log, metrics, engine)

	if err := orch.Run(ctx, scen); err != nil {
		log.Error(ctx, "scenario run failed",
			logging.String("scenario", scen.DisruptScenName()),
			logging.String("error", err.Error()))
		switch {
		case errors.Is(err, core.ErrInvalidConfig):
			os.Exit(2)
		default:
			os.Exit(1)
		}
	}

	fmt.Println("scenario run complete:", scen.DisruptScenName())
}
