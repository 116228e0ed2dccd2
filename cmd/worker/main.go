package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"spot-letter/cache"
	"spot-letter/classifier"
	"spot-letter/config"
	"spot-letter/contentclient"
	"spot-letter/db"
	"spot-letter/eventbus"
	"spot-letter/extractor"
	"spot-letter/feeder"
	"spot-letter/fetcher"
	"spot-letter/inventory"
	"spot-letter/jobs"
	"spot-letter/keyword"
	"spot-letter/llm"
	"spot-letter/logger"
	"spot-letter/metrics"
	"spot-letter/models"
	"spot-letter/places"
	"spot-letter/repositories"
	"spot-letter/scorer"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg)
	eventbus.ConfigureTopics(cfg.Kafka)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx, cfg.Mongo); err != nil {
		logger.Log.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = db.Disconnect(shutdownCtx)
	}()

	// EventBus 초기화 및 토픽 보장
	brokers, err := eventbus.GetBrokers(cfg.Kafka)
	if err != nil {
		logger.Log.Errorf("%v", err)
		os.Exit(1)
	}
	if err := eventbus.EnsureTopics(ctx, brokers, eventbus.TopicJobEvents, cfg.Worker.TopicPartitions); err != nil {
		logger.Log.Errorf("failed to ensure eventbus topics: %v", err)
	}
	if err := eventbus.EnsurePlainTopic(ctx, brokers, eventbus.TopicJobLifecycle.Base(), 1); err != nil {
		logger.Log.Errorf("failed to ensure lifecycle topic: %v", err)
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		logger.Log.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	handler, err := buildHandler(ctx, cfg, bus)
	if err != nil {
		logger.Log.Errorf("failed to build job handler: %v", err)
		os.Exit(1)
	}

	groupID, err := eventbus.GetGroupID(cfg.Kafka, "")
	if err != nil {
		logger.Log.Errorf("%v", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("metrics server error: %v", err)
		}
	}()

	logger.Log.Infof("starting worker with %d consumers (group=%s, topic=%s)", cfg.Worker.Concurrency, groupID, eventbus.TopicJobEvents.Base())

	// Graceful shutdown 설정
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bus.Subscribe(ctx, groupID, eventbus.TopicJobEvents, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Errorf("eventbus subscribe error: %v", err)
			}
		}()
	}

	// 종료 신호 대기
	<-sigChan
	logger.Log.Info("received shutdown signal, shutting down worker...")

	cancel()
	wg.Wait()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Log.Info("worker stopped")
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// buildHandler 는 설정으로 파이프라인 구성요소를 만들어 작업 핸들러로 묶는다.
func buildHandler(ctx context.Context, cfg config.AppConfig, bus eventbus.Publisher) (*jobs.Handler, error) {
	database := db.Database()

	importJobs := repositories.NewImportJobRepository(database)
	saveJobs := repositories.NewSaveJobRepository(database)
	accounts := repositories.NewConnectedAccountRepository(database)
	placeRepo := repositories.NewPlaceRepository(database)
	provenances := repositories.NewProvenanceRepository(database)
	mappings := repositories.NewInventoryMappingRepository(database)
	aiLogs := repositories.NewAILogRepository(database)
	tx := repositories.NewTransactor(db.Client())

	client, err := llm.NewFromConfig(ctx, cfg.LLM, aiLogs)
	if err != nil {
		return nil, err
	}

	// 콘텐츠 소스
	fetch := fetcher.New(cfg.Fetcher.PageSize, cfg.Fetcher.Fields).
		Register(models.AccountProviderInstagram, contentclient.NewGraphClient(cfg.Fetcher.GraphBaseURL, seconds(cfg.Fetcher.TimeoutSeconds))).
		Register(models.AccountProviderRSS, feeder.NewClient(seconds(cfg.Fetcher.TimeoutSeconds), cfg.Places.UserAgent))

	// 장소 보강
	var placeCache places.Cache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Log.Warnf("redis unavailable, place cache disabled: %v", err)
		} else {
			placeCache = cache.NewPlaceCache(rdb, time.Duration(cfg.Places.CacheTTLMinutes)*time.Minute)
		}
	}
	resolver := places.New(
		places.NewGoogleClient(cfg.Places.BaseURL, os.Getenv("GOOGLE_PLACES_API_KEY"), seconds(cfg.Places.TimeoutSeconds)),
		places.NewNominatimClient(cfg.Places.ReverseGeocodeURL, cfg.Places.UserAgent, seconds(cfg.Places.TimeoutSeconds)),
		placeCache,
		places.OptionsFromConfig(cfg.Places),
	)

	// 인벤토리 매칭
	keywords := keyword.NewGenerator(cfg.Inventory.LodgingKeywords)
	ranker := scorer.New(client)
	matchOpts := inventory.OptionsFromConfig(cfg.Inventory)
	var (
		secondary jobs.InventoryMatcher
		matchers  []jobs.InventoryMatcher
	)
	if rc := cfg.Inventory.Rakuten; rc.Enabled {
		m := inventory.NewMatcher(inventory.NewRakutenClient(rc.BaseURL, os.Getenv("RAKUTEN_APPLICATION_ID"), seconds(rc.TimeoutSeconds)), keywords, ranker, mappings, matchOpts)
		secondary = m
		matchers = append(matchers, m)
	}
	if bc := cfg.Inventory.Booking; bc.Enabled && bc.BaseURL != "" {
		matchers = append(matchers, inventory.NewMatcher(inventory.NewBookingClient(bc.BaseURL, os.Getenv("BOOKING_API_KEY"), seconds(bc.TimeoutSeconds)), keywords, ranker, mappings, matchOpts))
	}

	dispatcher := jobs.NewDispatcher(bus, "worker", cfg.Kafka.MaxRetry)

	importRunner := jobs.NewImportRunner(importJobs, accounts, fetch,
		extractor.New(client, cfg.Extractor.MaxCaptionRunes), resolver, secondary, dispatcher)
	saveRunner := jobs.NewSaveRunner(saveJobs, placeRepo, provenances, tx,
		classifier.New(client, cfg.Save.Categories, cfg.Save.DefaultCategory), resolver, matchers, dispatcher,
		jobs.SaveOptions{CheckpointEvery: cfg.Save.CheckpointEvery, DefaultCategory: cfg.Save.DefaultCategory})

	return jobs.NewHandler(importRunner, saveRunner), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
