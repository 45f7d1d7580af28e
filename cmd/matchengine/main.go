// Command matchengine wires config, the event bus, optional Kafka/Redis
// subscribers, snapshot recovery, and the periodic persistence writer
// around a matchingengine.Engine. Grounded on the teacher's
// cmd/oms/main.go signal-handling shape, stripped of the FIX gateway this
// repo has no transport for.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/config"
	"github.com/lattice-markets/matchcore/pkg/cache"
	"github.com/lattice-markets/matchcore/pkg/events"
	"github.com/lattice-markets/matchcore/pkg/matchingengine"
	"github.com/lattice-markets/matchcore/pkg/persistence"
	"github.com/lattice-markets/matchcore/pkg/riskrule"
)

func main() {
	configPath := flag.String("config", "./config/matchengine.yaml", "path to YAML config")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	bus := events.NewBus()
	if cfg.Kafka != nil {
		pub := events.NewKafkaPublisher(*cfg.Kafka, log)
		defer pub.Close()
		bus.Subscribe(pub)
	}
	if cfg.Redis != nil {
		client, err := cache.Connect(*cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		bboCache := cache.NewBBOCache(client, 30*time.Second, log)
		defer bboCache.Close()
		bus.Subscribe(bboCache)
	}

	makerBps, err := decimal.NewFromString(cfg.Engine.MakerFeeBps)
	if err != nil {
		log.Fatal("invalid maker_fee_bps", zap.Error(err))
	}
	takerBps, err := decimal.NewFromString(cfg.Engine.TakerFeeBps)
	if err != nil {
		log.Fatal("invalid taker_fee_bps", zap.Error(err))
	}

	engine := matchingengine.New(matchingengine.Config{
		MakerFeeBps:       makerBps,
		TakerFeeBps:       takerBps,
		RecentTradesLimit: cfg.Engine.RecentTradesLimit,
		ShapeRule: riskrule.DecimalShapeRule{
			MaxSignificantDigits: cfg.Engine.MaxSignificantDigits,
			MaxDecimalPlaces:     cfg.Engine.MaxDecimalPlaces,
		},
	}, bus, log)

	snap, _ := persistence.Load(cfg.Engine.PersistPath, log)
	engine.Recover(snap)
	log.Info("recovered state", zap.String("path", cfg.Engine.PersistPath), zap.Int("symbols", len(snap.Symbols)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := &persistence.Writer{
		Path:     cfg.Engine.PersistPath,
		Interval: time.Duration(cfg.Engine.PersistIntervalSeconds) * time.Second,
		Snapshot: engine.Snapshot,
		Log:      log,
	}
	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		writer.Run(ctx)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Info("matchengine started", zap.String("service", cfg.ServiceName))
	<-sigs
	log.Info("shutting down")
	cancel()
	writerDone.Wait()
	log.Info("exited cleanly")
}
