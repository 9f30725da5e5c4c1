/**
 * 模型:RAGFlow 资源归属
 * @date 2026.10.16
 * @description 记录本地用户与 RAGFlow 数据集/文档之间的归属关系。
 *              数据集与文档本身存放在 RAGFlow，这里只存其字符串ID。
 */
package model

import "time"

// DatasetUserRole 用户在数据集上的角色
type DatasetUserRole string

const (
	DatasetOwner  DatasetUserRole = "owner"
	DatasetEditor DatasetUserRole = "editor"
	DatasetViewer DatasetUserRole = "viewer"
)

// Valid 是否为已知角色
func (r DatasetUserRole) Valid() bool {
	switch r {
	case DatasetOwner, DatasetEditor, DatasetViewer:
		return true
	}
	return false
}

// RagflowDatasetUser 数据集归属
type RagflowDatasetUser struct {
	ID        uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	DatasetID string          `json:"dataset_id" gorm:"not null;size:64;index;index:idx_user_dataset,priority:2"`
	UserID    uint            `json:"user_id" gorm:"not null;index:idx_user_dataset,priority:1"`
	Role      DatasetUserRole `json:"role" gorm:"not null;size:16"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName 数据集归属表名
func (RagflowDatasetUser) TableName() string {
	return "ragflow_dataset_user"
}

// RagflowDocumentUser 文档归属
type RagflowDocumentUser struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID string    `json:"document_id" gorm:"not null;size:64;index;index:idx_user_document,priority:2"`
	DatasetID  string    `json:"dataset_id" gorm:"not null;size:64;index"`
	UserID     uint      `json:"user_id" gorm:"not null;index:idx_user_document,priority:1"`
	ObjectKey  string    `json:"object_key" gorm:"size:512"` // 归档对象键，未启用归档时为空
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName 文档归属表名
func (RagflowDocumentUser) TableName() string {
	return "ragflow_document_user"
}

// AllModels 参与 AutoMigrate 的全部模型，顺序满足外键依赖
func AllModels() []interface{} {
	return []interface{}{
		&Permission{},
		&Role{},
		&User{},
		&InviteCode{},
		&RagflowDatasetUser{},
		&RagflowDocumentUser{},
	}
}

// HandleDocumentsResponse 批量处理文档/数据集的结果
type HandleDocumentsResponse struct {
	DatasetID string   `json:"dataset_id,omitempty"`
	IDs       []string `json:"ids"`
	Count     int      `json:"count"`
	Queued    bool     `json:"queued"`            // 解析任务是否进入队列异步执行
	TaskID    string   `json:"task_id,omitempty"` // 队列消息ID
}

// UploadDocumentResponse 上传结果
type UploadDocumentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DatasetID string `json:"dataset_id"`
	Size      int64  `json:"size"`
	Archived  bool   `json:"archived"`
}
