/**
 * 模型:请求模型
 * @date 2026.10.16
 * @description API 请求体，校验规则使用 gin binding 标签
 */
package model

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新令牌请求，令牌只允许 URL 安全字符
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,min=20,max=512"`
}

// RegisterRequest 邀请码注册请求
type RegisterRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=64"`
	Password1  string `json:"password1" binding:"required,min=6"`
	Password2  string `json:"password2" binding:"required,min=6"`
	InviteCode string `json:"invite_code" binding:"required,min=8"`
}

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Password    string `json:"password" binding:"required,min=6"`
	Nickname    string `json:"nickname"`
	IsActive    *bool  `json:"is_active"`    // 缺省为 true
	IsSuperuser bool   `json:"is_superuser"` // 缺省为 false
}

// UpdateUserRequest 局部更新用户，只处理出现的字段
type UpdateUserRequest struct {
	Nickname    *string `json:"nickname"`
	Avatar      *string `json:"avatar"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// ToMap 转成仓储层使用的列更新集合
func (r *UpdateUserRequest) ToMap() map[string]interface{} {
	m := make(map[string]interface{})
	if r.Nickname != nil {
		m["nickname"] = *r.Nickname
	}
	if r.Avatar != nil {
		m["avatar"] = *r.Avatar
	}
	if r.IsActive != nil {
		m["is_active"] = *r.IsActive
	}
	if r.IsSuperuser != nil {
		m["is_superuser"] = *r.IsSuperuser
	}
	return m
}

// AssignRolesRequest 替换用户角色
type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids" binding:"required"`
}

// DisableUsersRequest 批量启用/禁用，disable 缺省为 true
type DisableUsersRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
	Disable *bool  `json:"disable"`
}

// ShouldDisable disable 字段缺省时按禁用处理
func (r *DisableUsersRequest) ShouldDisable() bool {
	return r.Disable == nil || *r.Disable
}

// DeleteUsersRequest 批量删除用户
type DeleteUsersRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required,min=1"`
}

// CreateRoleRequest 创建角色
type CreateRoleRequest struct {
	Name          string `json:"name" binding:"required,max=64"`
	DisplayName   string `json:"display_name"`
	PermissionIDs []uint `json:"permission_ids"`
}

// UpdateRoleRequest 更新角色，PermissionIDs 非 nil 时整体替换
type UpdateRoleRequest struct {
	DisplayName   *string `json:"display_name"`
	PermissionIDs []uint  `json:"permission_ids"`
}

// CreateInviteCodesRequest 批量生成邀请码
type CreateInviteCodesRequest struct {
	Count  int `json:"count" binding:"required,min=1,max=500"`
	Length int `json:"length" binding:"omitempty,min=8,max=64"`
}

// CreateDatasetRequest 创建数据集
type CreateDatasetRequest struct {
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	EmbeddingModel string                 `json:"embedding_model"`
	ChunkMethod    string                 `json:"chunk_method"`
	ParserConfig   map[string]interface{} `json:"parser_config"`
}

// IDsRequest 按ID批量删除数据集
type IDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// HandleDocumentsRequest 批量删除或解析文档
type HandleDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required,min=1"`
}

// RetrievalRequest 检索请求
type RetrievalRequest struct {
	Question               string   `json:"question" binding:"required"`
	DatasetIDs             []string `json:"dataset_ids" binding:"required,min=1"`
	DocumentIDs            []string `json:"document_ids,omitempty"`
	Page                   int      `json:"page,omitempty"`
	PageSize               int      `json:"page_size,omitempty"`
	SimilarityThreshold    float64  `json:"similarity_threshold,omitempty"`
	VectorSimilarityWeight float64  `json:"vector_similarity_weight,omitempty"`
	TopK                   int      `json:"top_k,omitempty"`
	Keyword                bool     `json:"keyword,omitempty"`
}
