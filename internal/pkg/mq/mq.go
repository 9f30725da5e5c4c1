/**
 * 消息队列
 * @date 2026.10.16
 * @description 与具体中间件无关的发布/订阅接口，后端为 RabbitMQ、Google Pub/Sub 或进程内内存队列。
 *              用于文档解析任务的异步投递。
 * @func Backend, New
 */
package mq

import (
	"context"
	"fmt"
	"strings"

	"raggate/internal/config"
)

// 支持的后端
const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
	BackendMemory   = "memory"
)

// Message 投递给订阅者的消息
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler 处理消息，返回错误时消息会被重新投递
type Handler func(ctx context.Context, msg Message) error

// Backend 发布/订阅操作
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// New 按配置创建队列后端，未启用时返回 nil
func New(ctx context.Context, cfg *config.QueueConfig) (Backend, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Backend) {
	case BackendRabbitMQ, "":
		b, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendPubSub:
		b, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendMemory:
		return NewMemoryBroker(64), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", cfg.Backend)
	}
}
