package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// KafkaConfig Kafka 总线配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	GroupID string   `yaml:"group_id" json:"group_id"`
}

// KafkaBus 基于 kafka-go 的至少一次总线实现。
// 每个主题一个 Writer；Run 为每个已订阅主题启动一个消费组读取循环。
type KafkaBus struct {
	cfg      KafkaConfig
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	handlers map[string][]Handler
	logger   *log.Logger
}

// NewKafkaBus 创建 Kafka 总线。
func NewKafkaBus(cfg KafkaConfig, logger *log.Logger) *KafkaBus {
	if cfg.GroupID == "" {
		cfg.GroupID = "resume-tailor"
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[bus] ", log.LstdFlags)
	}
	return &KafkaBus{
		cfg:      cfg,
		writers:  make(map[string]*kafka.Writer),
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Publish 序列化事件并写入主题，key 保证同一聚合的消息落同分区。
func (b *KafkaBus) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	w := b.writer(topic)
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (b *KafkaBus) writer(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.writers[topic]; ok {
		return w
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  b.cfg.Brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	b.writers[topic] = w
	return w
}

// Subscribe 注册主题处理器，须在 Run 之前调用。
func (b *KafkaBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Run 启动所有消费循环，直到上下文取消。
// 处理器错误仅记录并继续提交：重试由上层的显式重试路径负责，
// 总线不做无限重投。
func (b *KafkaBus) Run(ctx context.Context) error {
	b.mu.Lock()
	topics := make([]string, 0, len(b.handlers))
	for topic := range b.handlers {
		topics = append(topics, topic)
	}
	b.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		topic := topic
		g.Go(func() error {
			return b.consume(ctx, topic)
		})
	}
	return g.Wait()
}

func (b *KafkaBus) consume(ctx context.Context, topic string) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.cfg.Brokers,
		Topic:   topic,
		GroupID: b.cfg.GroupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Printf("read message: topic=%s err=%v", topic, err)
			continue
		}
		b.mu.Lock()
		hs := append([]Handler(nil), b.handlers[topic]...)
		b.mu.Unlock()
		for _, h := range hs {
			if err := h(ctx, msg.Value); err != nil {
				b.logger.Printf("handler error: topic=%s key=%s err=%v", topic, msg.Key, err)
			}
		}
	}
}

// Close 关闭所有 Writer。
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for topic, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer %s: %w", topic, err)
		}
	}
	return firstErr
}
