package setup

import (
	"raggate/internal/config"
	ragflowHandler "raggate/internal/handler/ragflow"
	"raggate/internal/pkg/logger"
	rf "raggate/internal/pkg/ragflow"
	ragflowRepo "raggate/internal/repo/mysql/ragflow"
	ragflowService "raggate/internal/service/ragflow"
)

// BuildRAGFlowModule 构建 RAGFlow 网关模块
// 对象存储与队列可选，未启用时服务退化为直连 RAGFlow
func BuildRAGFlowModule(infra *Infra, cfg *config.Config) (*RAGFlowModule, error) {
	logger.WithFields(map[string]interface{}{
		"operation": "setup",
		"option":    "setup.ragflow.begin",
		"func_name": "setup.ragflow.BuildRAGFlowModule",
		"base_url":  cfg.RAGFlow.GetAPIBaseURL(),
	}).Info("开始构建RAGFlow模块")

	client := rf.NewClientFromConfig(&cfg.RAGFlow)
	links, err := ragflowRepo.NewLinkRepository(infra.DB)
	if err != nil {
		return nil, err
	}

	var opts []ragflowService.Option
	if infra.Store != nil {
		opts = append(opts, ragflowService.WithArchive(infra.Store))
	}
	if infra.Queue != nil {
		opts = append(opts, ragflowService.WithParseQueue(infra.Queue, cfg.Queue.ParseChannel))
	}
	service, err := ragflowService.NewService(infra.DB, client, links, opts...)
	if err != nil {
		return nil, err
	}

	module := &RAGFlowModule{
		Handler: ragflowHandler.NewHandler(service),
		Service: service,
		Client:  client,
	}
	if infra.Queue != nil {
		module.Worker = ragflowService.NewParseWorker(client, infra.Queue, cfg.Queue.ParseChannel)
	}

	logger.WithFields(map[string]interface{}{
		"operation":   "setup",
		"option":      "setup.ragflow.done",
		"func_name":   "setup.ragflow.BuildRAGFlowModule",
		"archive":     infra.Store != nil,
		"async_parse": service.AsyncParse(),
	}).Info("RAGFlow模块构建完成")
	return module, nil
}
