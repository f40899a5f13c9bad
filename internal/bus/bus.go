package bus

import "context"

// 主题常量，生产与消费两侧共用。
const (
	TopicJobScrapeTriggered = "job.scrape.triggered"
	TopicJobScrapeSuccess   = "job.scrape.success"
	TopicJobScrapeFailed    = "job.scrape.failed"
	TopicTailoringTriggered = "resume.tailoring.triggered"
	TopicTailoringSuccess   = "resume.tailoring.success"
	TopicTailoringFailed    = "resume.tailoring.failed"
	TopicResumeUpdated      = "resume.updated"
)

// Handler 处理一条原始消息。返回错误仅用于记录，
// 总线按至少一次语义投递，处理器必须自行保证幂等。
type Handler func(ctx context.Context, data []byte) error

// Publisher 发布事件到指定主题，key 用于分区归并。
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// Bus 在 Publisher 之上增加订阅与消费循环。
type Bus interface {
	Publisher
	Subscribe(topic string, h Handler)
	Run(ctx context.Context) error
	Close() error
}
