package mq

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// attrAttempt 内存队列记录投递次数的属性名
const attrAttempt = "x-attempt"

// maxMemoryAttempts 处理失败时最多投递次数
const maxMemoryAttempts = 3

// ErrBrokerClosed 队列已关闭
var ErrBrokerClosed = errors.New("memory broker closed")

// MemoryBroker 进程内队列，单实例部署或测试使用
type MemoryBroker struct {
	mu       sync.Mutex
	size     int
	channels map[string]chan Message
	closed   chan struct{}
	once     sync.Once
}

// NewMemoryBroker 创建内存队列，size 为每个通道的缓冲长度
func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = 64
	}
	return &MemoryBroker{
		size:     size,
		channels: make(map[string]chan Message),
		closed:   make(chan struct{}),
	}
}

func (m *MemoryBroker) channel(name string) chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[name]
	if !ok {
		ch = make(chan Message, m.size)
		m.channels[name] = ch
	}
	return ch
}

// Publish 写入通道，缓冲满时阻塞直到 ctx 结束
func (m *MemoryBroker) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	msg := Message{ID: uuid.NewString(), Data: data, Attributes: map[string]string{}}
	for k, v := range attrs {
		msg.Attributes[k] = v
	}
	if err := m.enqueue(ctx, channel, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m *MemoryBroker) enqueue(ctx context.Context, channel string, msg Message) error {
	select {
	case <-m.closed:
		return ErrBrokerClosed
	default:
	}
	select {
	case m.channel(channel) <- msg:
		return nil
	case <-m.closed:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe 消费通道直到 ctx 结束或队列关闭，失败的消息重新入队
func (m *MemoryBroker) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := m.channel(channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closed:
			return ErrBrokerClosed
		case msg := <-ch:
			if err := handler(ctx, msg); err == nil {
				continue
			}
			attempt, _ := strconv.Atoi(msg.Attributes[attrAttempt])
			attempt++
			if attempt >= maxMemoryAttempts {
				continue
			}
			msg.Attributes[attrAttempt] = strconv.Itoa(attempt)
			if err := m.enqueue(ctx, channel, msg); err != nil {
				return err
			}
		}
	}
}

// Close 关闭队列，未消费的消息丢弃
func (m *MemoryBroker) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
