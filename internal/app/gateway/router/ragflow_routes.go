package router

import (
	"github.com/gin-gonic/gin"
)

// RAGFlow 接口权限
const (
	PermDatasetRead   = "dataset:read"
	PermDatasetWrite  = "dataset:write"
	PermDocumentRead  = "document:read"
	PermDocumentWrite = "document:write"
)

// setupRAGFlowRoutes 设置 RAGFlow 网关路由
// 权限只控制能否调用，数据集级别的归属校验在服务层完成
func (r *Router) setupRAGFlowRoutes(v1 *gin.RouterGroup) {
	h := r.modules.RAGFlow.Handler
	mm := r.middlewareManager
	group := v1.Group("/ragflow")
	group.Use(mm.GinJWTAuthMiddleware())

	datasets := group.Group("/datasets")
	{
		datasets.GET("", mm.GinRequirePermission(PermDatasetRead), h.ListDatasets)
		datasets.POST("", mm.GinRequirePermission(PermDatasetWrite), h.CreateDataset)
		datasets.DELETE("", mm.GinRequirePermission(PermDatasetWrite), h.DeleteDatasets)

		datasets.GET("/:id/documents", mm.GinRequirePermission(PermDatasetRead), h.ListDocuments)
		datasets.POST("/:id/documents", mm.GinRequirePermission(PermDocumentWrite), h.UploadDocuments)
		datasets.DELETE("/:id/documents", mm.GinRequirePermission(PermDocumentWrite), h.DeleteDocuments)
		datasets.GET("/:id/documents/:doc", mm.GinRequirePermission(PermDocumentRead), h.DownloadDocument)
		datasets.DELETE("/:id/documents/:doc/chunks", mm.GinRequirePermission(PermDocumentWrite), h.DeleteDocumentChunks)
		datasets.POST("/:id/chunks", mm.GinRequirePermission(PermDocumentWrite), h.ParseDocuments)
	}

	group.POST("/retrieval", mm.GinRequirePermission(PermDatasetRead), h.Retrieve)
}
