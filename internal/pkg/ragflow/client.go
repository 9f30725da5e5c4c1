package ragflow

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"raggate/internal/config"
)

// Dataset 数据集
type Dataset struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Avatar         string                 `json:"avatar,omitempty"`
	Description    string                 `json:"description,omitempty"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	CreateDate     string                 `json:"create_date,omitempty"`
	UpdateDate     string                 `json:"update_date,omitempty"`
	DocumentCount  int                    `json:"document_count"`
	ChunkCount     int                    `json:"chunk_count"`
	ChunkMethod    string                 `json:"chunk_method,omitempty"`
	Language       string                 `json:"language,omitempty"`
	EmbeddingModel string                 `json:"embedding_model,omitempty"`
	Permission     string                 `json:"permission,omitempty"`
	Status         string                 `json:"status,omitempty"`
	TokenNum       int                    `json:"token_num,omitempty"`
	ParserConfig   map[string]interface{} `json:"parser_config,omitempty"`
}

// Document 文档
type Document struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DatasetID   string  `json:"dataset_id"`
	Location    string  `json:"location,omitempty"`
	Size        int64   `json:"size"`
	Type        string  `json:"type,omitempty"`
	ChunkMethod string  `json:"chunk_method,omitempty"`
	ChunkCount  int     `json:"chunk_count"`
	TokenCount  int     `json:"token_count"`
	Run         string  `json:"run,omitempty"`
	Progress    float64 `json:"progress"`
	ProgressMsg string  `json:"progress_msg,omitempty"`
	CreateDate  string  `json:"create_date,omitempty"`
	UpdateDate  string  `json:"update_date,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`
}

// Chunk 文档分块或检索结果
type Chunk struct {
	ID                string   `json:"id"`
	Content           string   `json:"content"`
	DocumentID        string   `json:"document_id"`
	DocumentKeyword   string   `json:"document_keyword,omitempty"`
	DatasetID         string   `json:"dataset_id,omitempty"`
	ImportantKeywords []string `json:"important_keywords,omitempty"`
	Similarity        float64  `json:"similarity,omitempty"`
	VectorSimilarity  float64  `json:"vector_similarity,omitempty"`
	TermSimilarity    float64  `json:"term_similarity,omitempty"`
	Available         *bool    `json:"available,omitempty"`
}

// Chat 聊天助手
type Chat struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Avatar     string                 `json:"avatar,omitempty"`
	DatasetIDs []string               `json:"dataset_ids,omitempty"`
	LLM        map[string]interface{} `json:"llm,omitempty"`
	Prompt     map[string]interface{} `json:"prompt,omitempty"`
	CreateDate string                 `json:"create_date,omitempty"`
	UpdateDate string                 `json:"update_date,omitempty"`
}

// Agent 智能体
type Agent struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	DSL         map[string]interface{} `json:"dsl,omitempty"`
	CreateDate  string                 `json:"create_date,omitempty"`
	UpdateDate  string                 `json:"update_date,omitempty"`
}

// ListOptions 列表查询参数，零值字段不发送
type ListOptions struct {
	Page     int
	PageSize int
	OrderBy  string
	Desc     *bool
	ID       string
	Name     string
	Keywords string
	Suffix   string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.OrderBy != "" {
		q.Set("orderby", o.OrderBy)
	}
	if o.Desc != nil {
		q.Set("desc", strconv.FormatBool(*o.Desc))
	}
	if o.ID != "" {
		q.Set("id", o.ID)
	}
	if o.Name != "" {
		q.Set("name", o.Name)
	}
	if o.Keywords != "" {
		q.Set("keywords", o.Keywords)
	}
	if o.Suffix != "" {
		q.Set("suffix", o.Suffix)
	}
	return q
}

// CreateDatasetParams 创建数据集参数
type CreateDatasetParams struct {
	Name           string                 `json:"name"`
	Avatar         string                 `json:"avatar,omitempty"`
	Description    string                 `json:"description,omitempty"`
	EmbeddingModel string                 `json:"embedding_model,omitempty"`
	Permission     string                 `json:"permission"`
	ChunkMethod    string                 `json:"chunk_method"`
	ParserConfig   map[string]interface{} `json:"parser_config,omitempty"`
}

// RetrievalParams 检索参数
type RetrievalParams struct {
	Question               string   `json:"question"`
	DatasetIDs             []string `json:"dataset_ids"`
	DocumentIDs            []string `json:"document_ids"`
	Page                   int      `json:"page"`
	PageSize               int      `json:"page_size"`
	SimilarityThreshold    float64  `json:"similarity_threshold"`
	VectorSimilarityWeight float64  `json:"vector_similarity_weight"`
	TopK                   int      `json:"top_k"`
	RerankID               string   `json:"rerank_id,omitempty"`
	Keyword                bool     `json:"keyword"`
}

// Normalize 填充默认检索参数
func (p *RetrievalParams) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 30
	}
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = 0.2
	}
	if p.VectorSimilarityWeight == 0 {
		p.VectorSimilarityWeight = 0.3
	}
	if p.TopK <= 0 {
		p.TopK = 1024
	}
	if p.DocumentIDs == nil {
		p.DocumentIDs = []string{}
	}
}

// Download 下载结果，调用方负责关闭 Body
type Download struct {
	*http.Response
	Filename string
}

// Client RAGFlow 资源级客户端
type Client struct {
	http            *HTTPClient
	downloadTimeout time.Duration
}

// NewClient 基于 HTTPClient 创建资源级客户端
func NewClient(h *HTTPClient, downloadTimeout time.Duration) *Client {
	if downloadTimeout <= 0 {
		downloadTimeout = 10 * h.timeout
	}
	return &Client{http: h, downloadTimeout: downloadTimeout}
}

// NewClientFromConfig 从配置创建
func NewClientFromConfig(cfg *config.RAGFlowConfig) *Client {
	return NewClient(NewHTTPClientFromConfig(cfg), cfg.DownloadTimeout)
}

// HTTP 底层客户端
func (c *Client) HTTP() *HTTPClient {
	return c.http
}

// ================= Dataset =================

// CreateDataset 创建数据集
func (c *Client) CreateDataset(ctx context.Context, p *CreateDatasetParams) (*Dataset, error) {
	if p.Permission == "" {
		p.Permission = "me"
	}
	if p.ChunkMethod == "" {
		p.ChunkMethod = "naive"
	}
	env, err := c.http.Do(ctx, http.MethodPost, "/datasets", WithJSON(p))
	if err != nil {
		return nil, err
	}
	var ds Dataset
	return &ds, env.Decode(&ds)
}

// ListDatasets 列出数据集，返回当前页与总数
func (c *Client) ListDatasets(ctx context.Context, opts ListOptions) ([]Dataset, int64, error) {
	env, err := c.http.Do(ctx, http.MethodGet, "/datasets", WithQuery(opts.values()))
	if err != nil {
		return nil, 0, err
	}
	var items []Dataset
	if err := env.Decode(&items); err != nil {
		return nil, 0, err
	}
	return items, env.total(len(items)), nil
}

// UpdateDataset 修改数据集
func (c *Client) UpdateDataset(ctx context.Context, id string, changes map[string]interface{}) (*Dataset, error) {
	env, err := c.http.Do(ctx, http.MethodPut, "/datasets/"+url.PathEscape(id), WithJSON(changes))
	if err != nil {
		return nil, err
	}
	ds := Dataset{ID: id}
	return &ds, env.Decode(&ds)
}

// DeleteDatasets 删除数据集
func (c *Client) DeleteDatasets(ctx context.Context, ids []string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, "/datasets", WithJSON(map[string]interface{}{"ids": ids}))
	return err
}

// ================= Document =================

// UploadDocuments 上传文档
func (c *Client) UploadDocuments(ctx context.Context, datasetID string, files ...File) ([]Document, error) {
	env, err := c.http.Do(ctx, http.MethodPost, datasetPath(datasetID, "documents"),
		WithFiles(files...), WithTimeout(c.downloadTimeout))
	if err != nil {
		return nil, err
	}
	var docs []Document
	if err := env.Decode(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListDocuments 列出数据集中的文档
func (c *Client) ListDocuments(ctx context.Context, datasetID string, opts ListOptions) ([]Document, int64, error) {
	env, err := c.http.Do(ctx, http.MethodGet, datasetPath(datasetID, "documents"), WithQuery(opts.values()))
	if err != nil {
		return nil, 0, err
	}
	var data struct {
		Docs  []Document `json:"docs"`
		Total int64      `json:"total"`
	}
	if err := env.Decode(&data); err != nil {
		return nil, 0, err
	}
	return data.Docs, data.Total, nil
}

// DeleteDocuments 删除文档
func (c *Client) DeleteDocuments(ctx context.Context, datasetID string, ids []string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, datasetPath(datasetID, "documents"),
		WithJSON(map[string]interface{}{"ids": ids}))
	return err
}

// DownloadDocument 以流的形式下载文档，超时使用下载超时
func (c *Client) DownloadDocument(ctx context.Context, datasetID, documentID string) (*Download, error) {
	resp, err := c.http.Stream(ctx, http.MethodGet, datasetPath(datasetID, "documents", documentID),
		WithTimeout(c.downloadTimeout))
	if err != nil {
		return nil, err
	}

	// 失败时 RAGFlow 仍返回 200 + JSON 信封
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "application/json" {
		defer resp.Body.Close()
		var env Envelope
		if err := jsonDecode(resp.Body, &env); err != nil {
			return nil, unexpectedError(err)
		}
		if env.Code != 0 {
			return nil, responseError(env.Code, env.Message)
		}
		return nil, unexpectedError(fmt.Errorf("document %s returned json instead of content", documentID))
	}

	return &Download{Response: resp, Filename: FilenameFromResponse(resp, documentID)}, nil
}

// ParseDocuments 开始解析文档
func (c *Client) ParseDocuments(ctx context.Context, datasetID string, documentIDs []string) error {
	_, err := c.http.Do(ctx, http.MethodPost, datasetPath(datasetID, "chunks"),
		WithJSON(map[string]interface{}{"document_ids": documentIDs}))
	return err
}

// CancelParseDocuments 取消解析
func (c *Client) CancelParseDocuments(ctx context.Context, datasetID string, documentIDs []string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, datasetPath(datasetID, "chunks"),
		WithJSON(map[string]interface{}{"document_ids": documentIDs}))
	return err
}

// ================= Chunk =================

// ListChunks 列出文档分块
func (c *Client) ListChunks(ctx context.Context, datasetID, documentID string, opts ListOptions) ([]Chunk, int64, error) {
	env, err := c.http.Do(ctx, http.MethodGet, datasetPath(datasetID, "documents", documentID, "chunks"),
		WithQuery(opts.values()))
	if err != nil {
		return nil, 0, err
	}
	var data struct {
		Chunks []Chunk `json:"chunks"`
		Total  int64   `json:"total"`
	}
	if err := env.Decode(&data); err != nil {
		return nil, 0, err
	}
	return data.Chunks, data.Total, nil
}

// DeleteChunks 删除文档分块，chunkIDs 为空时删除全部
func (c *Client) DeleteChunks(ctx context.Context, datasetID, documentID string, chunkIDs []string) error {
	body := map[string]interface{}{}
	if len(chunkIDs) > 0 {
		body["chunk_ids"] = chunkIDs
	}
	_, err := c.http.Do(ctx, http.MethodDelete, datasetPath(datasetID, "documents", documentID, "chunks"), WithJSON(body))
	return err
}

// ================= Chat =================

// CreateChat 创建聊天助手
func (c *Client) CreateChat(ctx context.Context, name string, datasetIDs []string) (*Chat, error) {
	if datasetIDs == nil {
		datasetIDs = []string{}
	}
	env, err := c.http.Do(ctx, http.MethodPost, "/chats", WithJSON(map[string]interface{}{
		"name":        name,
		"dataset_ids": datasetIDs,
	}))
	if err != nil {
		return nil, err
	}
	var chat Chat
	return &chat, env.Decode(&chat)
}

// ListChats 列出聊天助手
func (c *Client) ListChats(ctx context.Context, opts ListOptions) ([]Chat, error) {
	env, err := c.http.Do(ctx, http.MethodGet, "/chats", WithQuery(opts.values()))
	if err != nil {
		return nil, err
	}
	var chats []Chat
	if err := env.Decode(&chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// DeleteChats 删除聊天助手
func (c *Client) DeleteChats(ctx context.Context, ids []string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, "/chats", WithJSON(map[string]interface{}{"ids": ids}))
	return err
}

// ================= Retrieval =================

// Retrieve 在数据集中检索
func (c *Client) Retrieve(ctx context.Context, p *RetrievalParams) ([]Chunk, int64, error) {
	p.Normalize()
	env, err := c.http.Do(ctx, http.MethodPost, "/retrieval", WithJSON(p))
	if err != nil {
		return nil, 0, err
	}
	var data struct {
		Chunks []Chunk `json:"chunks"`
		Total  int64   `json:"total"`
	}
	if err := env.Decode(&data); err != nil {
		return nil, 0, err
	}
	return data.Chunks, data.Total, nil
}

// ================= Agent =================

// ListAgents 列出智能体
func (c *Client) ListAgents(ctx context.Context, opts ListOptions) ([]Agent, error) {
	env, err := c.http.Do(ctx, http.MethodGet, "/agents", WithQuery(opts.values()))
	if err != nil {
		return nil, err
	}
	var agents []Agent
	if err := env.Decode(&agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// CreateAgent 创建智能体
func (c *Client) CreateAgent(ctx context.Context, title, description string, dsl map[string]interface{}) error {
	body := map[string]interface{}{"title": title, "dsl": dsl}
	if description != "" {
		body["description"] = description
	}
	_, err := c.http.Do(ctx, http.MethodPost, "/agents", WithJSON(body))
	return err
}

// UpdateAgent 修改智能体，空字段不修改
func (c *Client) UpdateAgent(ctx context.Context, agentID, title, description string, dsl map[string]interface{}) error {
	body := map[string]interface{}{}
	if title != "" {
		body["title"] = title
	}
	if description != "" {
		body["description"] = description
	}
	if len(dsl) > 0 {
		body["dsl"] = dsl
	}
	_, err := c.http.Do(ctx, http.MethodPut, "/agents/"+url.PathEscape(agentID), WithJSON(body))
	return err
}

// DeleteAgent 删除智能体
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	_, err := c.http.Do(ctx, http.MethodDelete, "/agents/"+url.PathEscape(agentID), WithJSON(map[string]interface{}{}))
	return err
}

func datasetPath(datasetID string, parts ...string) string {
	segs := []string{"datasets", url.PathEscape(datasetID)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return "/" + strings.Join(segs, "/")
}
