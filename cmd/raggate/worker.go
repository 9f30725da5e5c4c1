package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"raggate/internal/pkg/mq"
	rf "raggate/internal/pkg/ragflow"
	ragflowService "raggate/internal/service/ragflow"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "消费文档解析任务",
		Long:  "从 RabbitMQ 或 Pub/Sub 订阅解析任务并调用 RAGFlow 解析接口，需要 queue.enabled=true。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Queue.Backend == mq.BackendMemory {
				return errors.New("memory queue is consumed inside serve, use rabbitmq or pubsub for a standalone worker")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := mq.New(ctx, &cfg.Queue)
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New("queue is disabled, set queue.enabled=true")
			}
			defer backend.Close()

			client := rf.NewClientFromConfig(&cfg.RAGFlow)
			return ragflowService.NewParseWorker(client, backend, cfg.Queue.ParseChannel).Run(ctx)
		},
	}
}
