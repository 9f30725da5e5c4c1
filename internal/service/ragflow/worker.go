package ragflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"raggate/internal/pkg/logger"
	"raggate/internal/pkg/mq"
)

// 解析任务
const (
	DefaultParseChannel = "raggate.document.parse"
	ParseTaskType       = "document.parse"
)

// ParseTask 文档解析任务
type ParseTask struct {
	DatasetID   string   `json:"dataset_id"`
	DocumentIDs []string `json:"document_ids"`
	UserID      uint     `json:"user_id"`
}

// Subscriber 队列订阅者
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// ParseWorker 消费解析任务并调用 RAGFlow 解析
type ParseWorker struct {
	api     API
	sub     Subscriber
	channel string
}

// NewParseWorker 创建解析任务消费者
func NewParseWorker(api API, sub Subscriber, channel string) *ParseWorker {
	if channel == "" {
		channel = DefaultParseChannel
	}
	return &ParseWorker{api: api, sub: sub, channel: channel}
}

// Run 阻塞消费直到 ctx 结束
func (w *ParseWorker) Run(ctx context.Context) error {
	logger.LogSystemEvent("worker", "start", "parse worker started", logrus.InfoLevel, map[string]interface{}{
		"channel": w.channel,
	})
	err := w.sub.Subscribe(ctx, w.channel, w.Handle)
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.LogSystemEvent("worker", "stop", "parse worker stopped", logrus.InfoLevel, nil)
	return nil
}

// Handle 处理一条解析任务，格式错误的消息直接丢弃
func (w *ParseWorker) Handle(ctx context.Context, msg mq.Message) error {
	var task ParseTask
	if err := json.Unmarshal(msg.Data, &task); err != nil || task.DatasetID == "" || len(task.DocumentIDs) == 0 {
		logger.LogSystemEvent("worker", "drop_message", "invalid parse task", logrus.WarnLevel, map[string]interface{}{
			"message_id": msg.ID,
		})
		return nil
	}

	if err := w.api.ParseDocuments(ctx, task.DatasetID, task.DocumentIDs); err != nil {
		logger.LogError(err, "", task.UserID, "", "worker.parse", "", map[string]interface{}{
			"operation":  "parse_documents",
			"message_id": msg.ID,
			"dataset_id": task.DatasetID,
			"timestamp":  logger.NowFormatted(),
		})
		return fmt.Errorf("parse dataset %s: %w", task.DatasetID, err)
	}

	logger.LogSystemEvent("worker", "parse_done", "documents submitted for parsing", logrus.InfoLevel, map[string]interface{}{
		"message_id": msg.ID,
		"dataset_id": task.DatasetID,
		"count":      len(task.DocumentIDs),
	})
	return nil
}
