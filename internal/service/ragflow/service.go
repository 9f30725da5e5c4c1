/**
 * RAGFlow网关服务
 * @date 2026.10.16
 * @description 数据集与文档操作转发到 RAGFlow，同时在本地维护归属记录：
 *              创建数据集/上传文档时写入，删除时移除。
 *              读操作只校验权限点；写操作额外要求归属(owner/editor)，超级用户不受限。
 *              上传的文件可选归档到对象存储，解析请求可选投递到队列异步执行。
 */
package ragflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/model/system"
	"raggate/internal/pkg/logger"
	rf "raggate/internal/pkg/ragflow"
	"raggate/internal/pkg/storage"
	ragrepo "raggate/internal/repo/mysql/ragflow"
	"raggate/internal/service/crud"
)

// API 服务依赖的 RAGFlow 操作，*ragflow.Client 实现该接口
type API interface {
	CreateDataset(ctx context.Context, p *rf.CreateDatasetParams) (*rf.Dataset, error)
	ListDatasets(ctx context.Context, opts rf.ListOptions) ([]rf.Dataset, int64, error)
	DeleteDatasets(ctx context.Context, ids []string) error
	UploadDocuments(ctx context.Context, datasetID string, files ...rf.File) ([]rf.Document, error)
	ListDocuments(ctx context.Context, datasetID string, opts rf.ListOptions) ([]rf.Document, int64, error)
	DeleteDocuments(ctx context.Context, datasetID string, ids []string) error
	DownloadDocument(ctx context.Context, datasetID, documentID string) (*rf.Download, error)
	ParseDocuments(ctx context.Context, datasetID string, documentIDs []string) error
	DeleteChunks(ctx context.Context, datasetID, documentID string, chunkIDs []string) error
	Retrieve(ctx context.Context, p *rf.RetrievalParams) ([]rf.Chunk, int64, error)
}

// TaskPublisher 解析任务发布者
type TaskPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Upload 待上传文件，Open 可多次调用
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Option 服务选项
type Option func(*Service)

// WithArchive 上传文件同时归档到对象存储
func WithArchive(store storage.ObjectStore) Option {
	return func(s *Service) { s.archive = store }
}

// WithParseQueue 解析请求投递到队列
func WithParseQueue(pub TaskPublisher, channel string) Option {
	return func(s *Service) {
		s.publisher = pub
		s.parseChannel = channel
	}
}

// Service RAGFlow 网关服务
type Service struct {
	db           *gorm.DB
	api          API
	links        *ragrepo.LinkRepository
	archive      storage.ObjectStore
	publisher    TaskPublisher
	parseChannel string
}

// NewService 创建网关服务
func NewService(db *gorm.DB, api API, links *ragrepo.LinkRepository, opts ...Option) (*Service, error) {
	if db == nil || api == nil || links == nil {
		return nil, fmt.Errorf("ragflow service requires db, api client and link repository")
	}
	s := &Service{db: db, api: api, links: links}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil && s.parseChannel == "" {
		s.parseChannel = DefaultParseChannel
	}
	return s, nil
}

// AsyncParse 是否启用异步解析
func (s *Service) AsyncParse() bool {
	return s.publisher != nil
}

// requireWrite 写操作需要 owner/editor 归属
func (s *Service) requireWrite(ctx context.Context, actor *model.User, datasetID string, owner bool) error {
	if actor.IsSuperuser {
		return nil
	}
	role, err := s.links.DatasetRole(ctx, crud.Conn(ctx, s.db), actor.ID, datasetID)
	if err != nil {
		return err
	}
	switch {
	case role == model.DatasetOwner:
		return nil
	case role == model.DatasetEditor && !owner:
		return nil
	}
	return system.NewPermissionDeniedError(fmt.Sprintf("No write access to dataset %s", datasetID))
}

// ================= Dataset =================

// CreateDataset 创建数据集并记录创建者为 owner；本地记录失败时回删 RAGFlow 数据集
func (s *Service) CreateDataset(ctx context.Context, actor *model.User, req *model.CreateDatasetRequest) (*rf.Dataset, error) {
	ds, err := s.api.CreateDataset(ctx, &rf.CreateDatasetParams{
		Name:           req.Name,
		Description:    req.Description,
		EmbeddingModel: req.EmbeddingModel,
		ChunkMethod:    req.ChunkMethod,
		ParserConfig:   req.ParserConfig,
	})
	if err != nil {
		return nil, err
	}

	if err := s.links.LinkDataset(ctx, crud.Conn(ctx, s.db), ds.ID, actor.ID, model.DatasetOwner); err != nil {
		if delErr := s.api.DeleteDatasets(ctx, []string{ds.ID}); delErr != nil {
			logger.LogError(delErr, "", actor.ID, "", "ragflow_create_dataset", http.MethodPost, map[string]interface{}{
				"operation":  "rollback_dataset",
				"dataset_id": ds.ID,
				"timestamp":  logger.NowFormatted(),
			})
		}
		return nil, fmt.Errorf("failed to link dataset %s: %w", ds.ID, err)
	}

	logger.LogBusinessOperation("ragflow_create_dataset", actor.ID, actor.Username, "", "", "success", "创建数据集", map[string]interface{}{
		"dataset_id": ds.ID,
		"name":       ds.Name,
		"timestamp":  logger.NowFormatted(),
	})
	return ds, nil
}

// ListDatasets 分页列出数据集
func (s *Service) ListDatasets(ctx context.Context, opts rf.ListOptions) ([]rf.Dataset, int64, error) {
	return s.api.ListDatasets(ctx, opts)
}

// ListMyDatasets 按本地归属记录分页，总数为归属数量，逐个向 RAGFlow 取详情。
// RAGFlow 侧已不存在的数据集跳过，但仍计入总数
func (s *Service) ListMyDatasets(ctx context.Context, actor *model.User, opts rf.ListOptions) ([]rf.Dataset, int64, error) {
	links, total, err := s.links.DatasetLinksPaged(ctx, crud.Conn(ctx, s.db), actor.ID, opts.Page, opts.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]rf.Dataset, 0, len(links))
	for _, link := range links {
		found, _, err := s.api.ListDatasets(ctx, rf.ListOptions{Page: 1, PageSize: 1, ID: link.DatasetID})
		if rf.IsKind(err, rf.KindResponse) {
			logger.LogWarn("linked dataset missing in RAGFlow", "", actor.ID, "", "ragflow_list_datasets", http.MethodGet, map[string]interface{}{
				"dataset_id": link.DatasetID,
				"error":      err.Error(),
			})
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		items = append(items, found...)
	}
	return items, total, nil
}

// MyDatasetIDs 当前用户有归属的数据集
func (s *Service) MyDatasetIDs(ctx context.Context, actor *model.User) ([]string, error) {
	return s.links.DatasetIDsOf(ctx, crud.Conn(ctx, s.db), actor.ID)
}

// DeleteDatasets 删除数据集，需要 owner 归属
func (s *Service) DeleteDatasets(ctx context.Context, actor *model.User, ids []string) (*model.HandleDocumentsResponse, error) {
	for _, id := range ids {
		if err := s.requireWrite(ctx, actor, id, true); err != nil {
			return nil, err
		}
	}
	if err := s.api.DeleteDatasets(ctx, ids); err != nil {
		return nil, err
	}
	if err := crud.WithTx(ctx, s.db, func(ctx context.Context) error {
		return s.links.UnlinkDatasets(ctx, crud.Conn(ctx, s.db), ids)
	}); err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("ragflow_delete_datasets", actor.ID, actor.Username, "", "", "success", "删除数据集", map[string]interface{}{
		"dataset_ids": ids,
		"timestamp":   logger.NowFormatted(),
	})
	return &model.HandleDocumentsResponse{IDs: ids, Count: len(ids)}, nil
}

// ================= Document =================

// ListDocuments 分页列出文档
func (s *Service) ListDocuments(ctx context.Context, datasetID string, opts rf.ListOptions) ([]rf.Document, int64, error) {
	return s.api.ListDocuments(ctx, datasetID, opts)
}

// UploadDocuments 上传文档、记录归属，启用归档时写入对象存储(归档失败只记录日志)
func (s *Service) UploadDocuments(ctx context.Context, actor *model.User, datasetID string, uploads []Upload) ([]model.UploadDocumentResponse, error) {
	if len(uploads) == 0 {
		return nil, system.NewServiceValidationError("No files uploaded", map[string]interface{}{"field": "files"})
	}
	if err := s.requireWrite(ctx, actor, datasetID, false); err != nil {
		return nil, err
	}

	files := make([]rf.File, 0, len(uploads))
	for _, u := range uploads {
		rc, err := u.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", u.Name, err)
		}
		defer rc.Close()
		files = append(files, rf.File{Name: u.Name, Reader: rc})
	}

	docs, err := s.api.UploadDocuments(ctx, datasetID, files...)
	if err != nil {
		return nil, err
	}

	links := make([]*model.RagflowDocumentUser, 0, len(docs))
	out := make([]model.UploadDocumentResponse, 0, len(docs))
	for i, doc := range docs {
		link := &model.RagflowDocumentUser{DocumentID: doc.ID, DatasetID: datasetID, UserID: actor.ID}
		resp := model.UploadDocumentResponse{ID: doc.ID, Name: doc.Name, DatasetID: datasetID, Size: doc.Size}
		// RAGFlow 按上传顺序返回文档
		if s.archive != nil && i < len(uploads) {
			if key, err := s.archiveUpload(ctx, datasetID, doc.ID, uploads[i]); err == nil {
				link.ObjectKey = key
				resp.Archived = true
			} else {
				logger.LogError(err, "", actor.ID, "", "ragflow_upload_documents", http.MethodPost, map[string]interface{}{
					"operation":   "archive_document",
					"dataset_id":  datasetID,
					"document_id": doc.ID,
					"timestamp":   logger.NowFormatted(),
				})
			}
		}
		links = append(links, link)
		out = append(out, resp)
	}

	if err := s.links.LinkDocuments(ctx, crud.Conn(ctx, s.db), links); err != nil {
		return nil, err
	}

	logger.LogBusinessOperation("ragflow_upload_documents", actor.ID, actor.Username, "", "", "success", "上传文档", map[string]interface{}{
		"dataset_id": datasetID,
		"count":      len(docs),
		"timestamp":  logger.NowFormatted(),
	})
	return out, nil
}

func (s *Service) archiveUpload(ctx context.Context, datasetID, documentID string, u Upload) (string, error) {
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	key := storage.DocumentKey(datasetID, documentID, u.Name)
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.archive.Put(ctx, key, rc, u.Size, contentType); err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return key, nil
}

// DeleteDocuments 删除文档及其归属与归档对象
func (s *Service) DeleteDocuments(ctx context.Context, actor *model.User, datasetID string, ids []string) (*model.HandleDocumentsResponse, error) {
	if err := s.requireWrite(ctx, actor, datasetID, false); err != nil {
		return nil, err
	}
	links, err := s.links.DocumentLinks(ctx, crud.Conn(ctx, s.db), datasetID, ids)
	if err != nil {
		return nil, err
	}
	if err := s.api.DeleteDocuments(ctx, datasetID, ids); err != nil {
		return nil, err
	}
	if err := s.links.UnlinkDocuments(ctx, crud.Conn(ctx, s.db), datasetID, ids); err != nil {
		return nil, err
	}

	if s.archive != nil {
		for _, link := range links {
			if link.ObjectKey == "" {
				continue
			}
			if err := s.archive.Delete(ctx, link.ObjectKey); err != nil {
				logger.LogSystemEvent("ragflow", "archive_delete_failed", err.Error(), logrus.WarnLevel, map[string]interface{}{
					"object_key": link.ObjectKey,
				})
			}
		}
	}

	logger.LogBusinessOperation("ragflow_delete_documents", actor.ID, actor.Username, "", "", "success", "删除文档", map[string]interface{}{
		"dataset_id":   datasetID,
		"document_ids": ids,
		"timestamp":    logger.NowFormatted(),
	})
	return &model.HandleDocumentsResponse{DatasetID: datasetID, IDs: ids, Count: len(ids)}, nil
}

// DownloadDocument 下载文档，调用方负责关闭 Body
func (s *Service) DownloadDocument(ctx context.Context, datasetID, documentID string) (*rf.Download, error) {
	return s.api.DownloadDocument(ctx, datasetID, documentID)
}

// ParseDocuments 解析文档；启用队列时只投递任务
func (s *Service) ParseDocuments(ctx context.Context, actor *model.User, datasetID string, ids []string) (*model.HandleDocumentsResponse, error) {
	if err := s.requireWrite(ctx, actor, datasetID, false); err != nil {
		return nil, err
	}
	resp := &model.HandleDocumentsResponse{DatasetID: datasetID, IDs: ids, Count: len(ids)}

	if s.publisher == nil {
		if err := s.api.ParseDocuments(ctx, datasetID, ids); err != nil {
			return nil, err
		}
		return resp, nil
	}

	task := ParseTask{DatasetID: datasetID, DocumentIDs: ids, UserID: actor.ID}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	taskID, err := s.publisher.Publish(ctx, s.parseChannel, data, map[string]string{"type": ParseTaskType})
	if err != nil {
		return nil, fmt.Errorf("failed to publish parse task: %w", err)
	}
	resp.Queued = true
	resp.TaskID = taskID

	logger.LogBusinessOperation("ragflow_parse_documents", actor.ID, actor.Username, "", "", "queued", "解析任务已投递", map[string]interface{}{
		"dataset_id": datasetID,
		"task_id":    taskID,
		"count":      len(ids),
		"timestamp":  logger.NowFormatted(),
	})
	return resp, nil
}

// DeleteDocumentChunks 删除文档的全部分块
func (s *Service) DeleteDocumentChunks(ctx context.Context, actor *model.User, datasetID, documentID string) (*model.HandleDocumentsResponse, error) {
	if err := s.requireWrite(ctx, actor, datasetID, false); err != nil {
		return nil, err
	}
	if err := s.api.DeleteChunks(ctx, datasetID, documentID, nil); err != nil {
		return nil, err
	}
	return &model.HandleDocumentsResponse{DatasetID: datasetID, IDs: []string{documentID}, Count: 1}, nil
}

// Retrieve 检索
func (s *Service) Retrieve(ctx context.Context, req *model.RetrievalRequest) ([]rf.Chunk, int64, error) {
	return s.api.Retrieve(ctx, &rf.RetrievalParams{
		Question:               req.Question,
		DatasetIDs:             req.DatasetIDs,
		DocumentIDs:            req.DocumentIDs,
		Page:                   req.Page,
		PageSize:               req.PageSize,
		SimilarityThreshold:    req.SimilarityThreshold,
		VectorSimilarityWeight: req.VectorSimilarityWeight,
		TopK:                   req.TopK,
		Keyword:                req.Keyword,
	})
}
