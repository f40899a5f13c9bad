package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"resume-tailor/internal/api"
	"resume-tailor/internal/bus"
	"resume-tailor/internal/fanout"
	"resume-tailor/internal/gateway"
	"resume-tailor/internal/generate"
	"resume-tailor/internal/notifier"
	"resume-tailor/internal/resume"
	"resume-tailor/internal/saga"
	"resume-tailor/internal/scraper"
	"resume-tailor/internal/search"
	"resume-tailor/internal/sections"
	"resume-tailor/internal/storage"
	"resume-tailor/internal/thumbnail"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Bus       BusConfig            `yaml:"bus"`
	Admin     AdminConfig          `yaml:"admin"`
	Email     notifier.EmailConfig `yaml:"email"`
	Scraper   scraper.Config       `yaml:"scraper"`
	Thumbnail thumbnail.Config     `yaml:"thumbnail"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BusConfig 选择事件总线实现，kind 为 memory 或 kafka。
type BusConfig struct {
	Kind  string          `yaml:"kind"`
	Kafka bus.KafkaConfig `yaml:"kafka"`
}

type AdminConfig struct {
	UserID string `yaml:"user_id"`
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		return
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = "resumes.db"
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		log.Printf("init store error: %v", err)
		return
	}
	defer store.Close()

	eventBus := buildBus(cfg.Bus)
	defer eventBus.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	gw := gateway.New(store, eventBus)
	orch := resume.NewOrchestrator(store, gw, eventBus, cfg.Admin.UserID)
	engine := sections.NewEngine(store)
	emitter := fanout.NewEmitter(eventBus)

	var llm scraper.LLMClient
	if cfg.Scraper.Deepseek.APIKey != "" {
		llm = scraper.NewDeepseekClient(cfg.Scraper.Deepseek, httpClient)
	}

	sg := saga.New(store, engine, buildGenerator(store, llm), eventBus, emitter, nil)
	sg.Register(eventBus)

	worker := scraper.NewWorker(store, eventBus, httpClient, llm, cfg.Scraper)
	worker.Register(eventBus)

	renderer, err := thumbnail.NewRenderer(store, emitter, cfg.Thumbnail)
	if err != nil {
		log.Printf("init thumbnail renderer error: %v", err)
		return
	}
	renderer.Register(eventBus)

	indexer := search.NewIndexer(store)
	indexer.Register(eventBus)

	notif := notifier.NewTailoringNotifier(store, buildSender(cfg.Email), cfg.Email.From)
	notif.Register(eventBus)

	handler := api.NewHandler(orch, engine, emitter)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eventBus.Run(gctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server error: %v", err)
	}
}

func loadConfig() (AppConfig, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func buildBus(cfg BusConfig) bus.Bus {
	if cfg.Kind == "kafka" && len(cfg.Kafka.Brokers) > 0 {
		return bus.NewKafkaBus(cfg.Kafka, nil)
	}
	if cfg.Kind == "kafka" {
		log.Printf("kafka bus requested without brokers, falling back to memory bus")
	}
	return bus.NewMemoryBus(nil)
}

func buildGenerator(store *storage.Store, llm scraper.LLMClient) saga.Generator {
	if llm == nil {
		log.Printf("llm generation disabled: missing deepseek api key, using base resume passthrough")
		return generate.NewPassthroughGenerator(store)
	}
	return generate.NewLLMGenerator(store, llm)
}

func buildSender(cfg notifier.EmailConfig) notifier.EmailSender {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		log.Printf("smtp sender disabled: missing host/port/from")
		return nil
	}
	return notifier.NewSMTPClient(cfg)
}
