/**
 * RAGFlow网关接口
 * @date 2026.10.16
 * @description 数据集、文档、解析与检索接口。分页默认 30 条，最大 100。
 *              文档下载以流的形式转发，文件名使用 RFC 5987 编码。
 */
package ragflow

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"raggate/internal/handler/common"
	"raggate/internal/model"
	"raggate/internal/model/system"
	rf "raggate/internal/pkg/ragflow"
	ragsvc "raggate/internal/service/ragflow"
)

const (
	defaultPageSize = 30
	formFiles       = "files"
)

// Handler RAGFlow 网关处理器
type Handler struct {
	service *ragsvc.Service
}

// NewHandler 创建处理器
func NewHandler(service *ragsvc.Service) *Handler {
	return &Handler{service: service}
}

// listOptions 解析 RAGFlow 列表参数
func listOptions(c *gin.Context) (rf.ListOptions, error) {
	opts := rf.ListOptions{
		Page:     1,
		PageSize: defaultPageSize,
		OrderBy:  c.Query("order_by"),
		ID:       c.Query("id"),
		Name:     c.Query("name"),
		Keywords: c.Query("keywords"),
		Suffix:   c.Query("suffix"),
	}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return opts, invalidQuery("page", "must be an integer >= 1")
		}
		opts.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > common.MaxPageSize {
			return opts, invalidQuery("page_size", "must be an integer between 1 and 100")
		}
		opts.PageSize = size
	}
	if v := c.Query("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return opts, invalidQuery("desc", "must be a boolean")
		}
		opts.Desc = &desc
	}
	return opts, nil
}

func invalidQuery(field, message string) error {
	return system.NewServiceValidationError("Invalid query parameter", []system.ValidationError{{Field: field, Message: message}})
}

// ListDatasets 数据集分页列表；mine=true 时按当前用户的归属记录分页
func (h *Handler) ListDatasets(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var (
		items []rf.Dataset
		total int64
	)
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		items, total, err = h.service.ListMyDatasets(ctx, common.CurrentUser(c), opts)
	} else {
		items, total, err = h.service.ListDatasets(ctx, opts)
	}
	if err != nil {
		common.Fail(c, err)
		return
	}
	if items == nil {
		items = []rf.Dataset{}
	}
	common.OK(c, model.NewPageData(items, total, opts.Page, opts.PageSize))
}

// CreateDataset 创建数据集，创建者记为 owner
func (h *Handler) CreateDataset(c *gin.Context) {
	var req model.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	ds, err := h.service.CreateDataset(c.Request.Context(), common.CurrentUser(c), &req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.Created(c, ds)
}

// DeleteDatasets 批量删除数据集
func (h *Handler) DeleteDatasets(c *gin.Context) {
	var req model.IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	resp, err := h.service.DeleteDatasets(c.Request.Context(), common.CurrentUser(c), req.IDs)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, resp)
}

// ListDocuments 文档分页列表，支持 keywords/suffix
func (h *Handler) ListDocuments(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	items, total, err := h.service.ListDocuments(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, model.NewPageData(items, total, opts.Page, opts.PageSize))
}

// UploadDocuments 上传文档(multipart 字段 files，可多个)
func (h *Handler) UploadDocuments(c *gin.Context) {
	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File[formFiles]
	}

	uploads := make([]ragsvc.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, ragsvc.Upload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	docs, err := h.service.UploadDocuments(c.Request.Context(), common.CurrentUser(c), c.Param("id"), uploads)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, docs)
}

// DeleteDocuments 批量删除文档
func (h *Handler) DeleteDocuments(c *gin.Context) {
	var req model.HandleDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	resp, err := h.service.DeleteDocuments(c.Request.Context(), common.CurrentUser(c), c.Param("id"), req.DocumentIDs)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, resp)
}

// DownloadDocument 流式下载文档
func (h *Handler) DownloadDocument(c *gin.Context) {
	dl, err := h.service.DownloadDocument(c.Request.Context(), c.Param("id"), c.Param("doc"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.ContentLength, "application/octet-stream", dl.Body, map[string]string{
		"Content-Disposition": rf.ContentDisposition(dl.Filename),
	})
}

// ParseDocuments 解析文档，启用队列时返回 queued=true 与任务ID
func (h *Handler) ParseDocuments(c *gin.Context) {
	var req model.HandleDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	resp, err := h.service.ParseDocuments(c.Request.Context(), common.CurrentUser(c), c.Param("id"), req.DocumentIDs)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if resp.Queued {
		c.JSON(http.StatusAccepted, model.OK(resp))
		return
	}
	common.OK(c, resp)
}

// DeleteDocumentChunks 删除文档全部分块
func (h *Handler) DeleteDocumentChunks(c *gin.Context) {
	resp, err := h.service.DeleteDocumentChunks(c.Request.Context(), common.CurrentUser(c), c.Param("id"), c.Param("doc"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.OK(c, resp)
}

// Retrieve 在指定数据集中检索分块
func (h *Handler) Retrieve(c *gin.Context) {
	var req model.RetrievalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BindError(c, err)
		return
	}
	chunks, total, err := h.service.Retrieve(c.Request.Context(), &req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if chunks == nil {
		chunks = []rf.Chunk{}
	}
	common.OK(c, gin.H{"total": total, "chunks": chunks})
}
