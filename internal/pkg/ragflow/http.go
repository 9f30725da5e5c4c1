/**
 * RAGFlow HTTP 客户端
 * @date 2026.10.16
 * @description 对 RAGFlow REST API 的底层封装：拼接 {base}/api/v1 地址、附带 Bearer API Key、
 *              控制单次请求超时，并把所有失败统一映射为 *Error。
 *              成功时返回解码后的 Envelope；下载接口返回原始响应体流。
 * @func HTTPClient.Do, HTTPClient.Stream
 */
package ragflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"raggate/internal/config"
	"raggate/internal/pkg/logger"
)

// DefaultTimeout 未配置时的默认超时
const DefaultTimeout = 5 * time.Second

// Envelope RAGFlow 统一响应
type Envelope struct {
	Code          int             `json:"code"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data"`
	Total         int64           `json:"total,omitempty"`
	TotalDatasets int64           `json:"total_datasets,omitempty"`
}

// total 列表接口的总数，未返回时取当前页条数
func (e *Envelope) total(n int) int64 {
	if e.Total > 0 {
		return e.Total
	}
	if e.TotalDatasets > 0 {
		return e.TotalDatasets
	}
	return int64(n)
}

// Decode 把 data 解码到 v，data 为空时不做任何事
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return unexpectedError(err)
	}
	return nil
}

// File 上传文件
type File struct {
	Name   string
	Reader io.Reader
}

// RequestOption 单次请求选项
type RequestOption func(*request)

type request struct {
	query   url.Values
	body    interface{}
	files   []File
	timeout time.Duration
}

// WithQuery 附加查询参数
func WithQuery(q url.Values) RequestOption {
	return func(r *request) { r.query = q }
}

// WithJSON 以JSON作为请求体
func WithJSON(body interface{}) RequestOption {
	return func(r *request) { r.body = body }
}

// WithFiles 以 multipart/form-data 上传文件，字段名为 file
func WithFiles(files ...File) RequestOption {
	return func(r *request) { r.files = files }
}

// WithTimeout 覆盖本次请求的超时
func WithTimeout(d time.Duration) RequestOption {
	return func(r *request) { r.timeout = d }
}

// HTTPClient RAGFlow HTTP 客户端，进程内共享
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPClient 创建客户端，baseURL 需已包含 /api/{version}
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewHTTPClientFromConfig 从配置创建客户端
func NewHTTPClientFromConfig(cfg *config.RAGFlowConfig) *HTTPClient {
	return NewHTTPClient(cfg.GetAPIBaseURL(), cfg.APIKey, cfg.Timeout)
}

// URL 拼接完整地址
func (h *HTTPClient) URL(path string) string {
	return h.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do 发送请求并解码信封，code != 0 视为失败
func (h *HTTPClient) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Envelope, error) {
	start := time.Now()
	resp, cancel, err := h.send(ctx, method, path, opts...)
	if err != nil {
		logger.LogUpstreamCall(method, path, 0, time.Since(start), err)
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := statusError(resp.StatusCode)
		logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	var env Envelope
	if err := jsonDecode(resp.Body, &env); err != nil {
		mapped := mapTransportError(err)
		if mapped.Kind == KindRequest {
			mapped = unexpectedError(err)
		}
		logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), mapped)
		return nil, mapped
	}
	if env.Code != 0 {
		err := responseError(env.Code, env.Message)
		logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), nil)
	return &env, nil
}

// Stream 发送请求并返回响应，调用方负责关闭 Body；非 2xx 时返回错误
func (h *HTTPClient) Stream(ctx context.Context, method, path string, opts ...RequestOption) (*http.Response, error) {
	start := time.Now()
	resp, cancel, err := h.send(ctx, method, path, opts...)
	if err != nil {
		logger.LogUpstreamCall(method, path, 0, time.Since(start), err)
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		cancel()
		err := statusError(resp.StatusCode)
		logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), err)
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	logger.LogUpstreamCall(method, path, resp.StatusCode, time.Since(start), nil)
	return resp, nil
}

func (h *HTTPClient) send(ctx context.Context, method, path string, opts ...RequestOption) (*http.Response, context.CancelFunc, error) {
	r := &request{timeout: h.timeout}
	for _, opt := range opts {
		opt(r)
	}

	body, contentType, err := r.encode()
	if err != nil {
		return nil, nil, unexpectedError(err)
	}

	target := h.URL(path)
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		cancel()
		return nil, nil, unexpectedError(err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, mapTransportError(err)
	}
	return resp, cancel, nil
}

func (r *request) encode() (io.Reader, string, error) {
	if len(r.files) > 0 {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for _, f := range r.files {
			part, err := mw.CreateFormFile("file", f.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := io.Copy(part, f.Reader); err != nil {
				return nil, "", fmt.Errorf("read upload %s: %w", f.Name, err)
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return buf, mw.FormDataContentType(), nil
	}
	if r.body == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// mapTransportError 超时与其他传输错误分开
func mapTransportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return timeoutError(err)
	}
	return requestError(err)
}

func jsonDecode(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
