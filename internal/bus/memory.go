package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

// Published 记录一条已发布消息，测试用于断言。
type Published struct {
	Topic string
	Key   string
	Data  []byte
}

// MemoryBus 进程内同步总线：发布即分发给所有订阅者。
// 用于测试与单进程部署，保留至少一次语义（可人为重投）。
type MemoryBus struct {
	mu        sync.Mutex
	handlers  map[string][]Handler
	published []Published
	logger    *log.Logger
}

// NewMemoryBus 创建内存总线。
func NewMemoryBus(logger *log.Logger) *MemoryBus {
	if logger == nil {
		logger = log.New(os.Stdout, "[bus] ", log.LstdFlags)
	}
	return &MemoryBus{handlers: make(map[string][]Handler), logger: logger}
}

// Publish 序列化事件并同步分发。处理器错误仅记录，不回传给发布方。
func (b *MemoryBus) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	b.mu.Lock()
	b.published = append(b.published, Published{Topic: topic, Key: key, Data: data})
	hs := append([]Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()

	for _, h := range hs {
		if err := h(ctx, data); err != nil {
			b.logger.Printf("handler error: topic=%s key=%s err=%v", topic, key, err)
		}
	}
	return nil
}

// Subscribe 注册主题处理器。
func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Run 阻塞到上下文取消，内存总线无独立消费循环。
func (b *MemoryBus) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close 无资源可释放。
func (b *MemoryBus) Close() error { return nil }

// Events 返回指定主题的历史消息，topic 为空时返回全部。
func (b *MemoryBus) Events(topic string) []Published {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == "" {
		return append([]Published(nil), b.published...)
	}
	out := make([]Published, 0)
	for _, p := range b.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Redeliver 将指定主题的第 i 条历史消息重新分发，模拟总线重投。
func (b *MemoryBus) Redeliver(ctx context.Context, topic string, i int) error {
	events := b.Events(topic)
	if i < 0 || i >= len(events) {
		return fmt.Errorf("redeliver: no message %d on %s", i, topic)
	}
	b.mu.Lock()
	hs := append([]Handler(nil), b.handlers[topic]...)
	b.mu.Unlock()
	for _, h := range hs {
		if err := h(ctx, events[i].Data); err != nil {
			b.logger.Printf("redeliver handler error: topic=%s err=%v", topic, err)
		}
	}
	return nil
}
