package ragflow

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// FilenameFromResponse 从 Content-Disposition 取文件名，取不到时使用 fallback
func FilenameFromResponse(resp *http.Response, fallback string) string {
	if resp == nil {
		return fallback
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return fallback
	}
	// filename* 由 mime 包解码后同样放在 filename 中
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return fallback
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

// ContentDisposition 生成支持中文与特殊字符的附件头(RFC 5987)
func ContentDisposition(filename string) string {
	return "attachment; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
}
