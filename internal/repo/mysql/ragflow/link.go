/**
 * RAGFlow仓库层:资源归属
 * @date 2026.10.16
 * @description 维护本地用户与 RAGFlow 数据集/文档的归属记录。
 *              RAGFlow 侧删除成功后再删除本地记录，本地记录缺失不视为错误。
 */
package ragflow

import (
	"context"

	"gorm.io/gorm"

	"raggate/internal/model"
	"raggate/internal/repo/mysql"
)

// LinkRepository 归属关系仓库
type LinkRepository struct {
	Datasets  *mysql.Repository[model.RagflowDatasetUser]
	Documents *mysql.Repository[model.RagflowDocumentUser]
}

// NewLinkRepository 创建归属关系仓库
func NewLinkRepository(db *gorm.DB) (*LinkRepository, error) {
	datasets, err := mysql.NewRepository[model.RagflowDatasetUser](db)
	if err != nil {
		return nil, err
	}
	documents, err := mysql.NewRepository[model.RagflowDocumentUser](db)
	if err != nil {
		return nil, err
	}
	return &LinkRepository{Datasets: datasets, Documents: documents}, nil
}

// LinkDataset 记录数据集归属
func (r *LinkRepository) LinkDataset(ctx context.Context, db *gorm.DB, datasetID string, userID uint, role model.DatasetUserRole) error {
	return r.Datasets.Create(ctx, db, &model.RagflowDatasetUser{
		DatasetID: datasetID,
		UserID:    userID,
		Role:      role,
	})
}

// UnlinkDatasets 删除数据集归属及其下所有文档归属
func (r *LinkRepository) UnlinkDatasets(ctx context.Context, db *gorm.DB, datasetIDs []string) error {
	if len(datasetIDs) == 0 {
		return nil
	}
	tx := db.WithContext(ctx)
	if err := tx.Where("dataset_id IN ?", datasetIDs).Delete(&model.RagflowDocumentUser{}).Error; err != nil {
		return err
	}
	return tx.Where("dataset_id IN ?", datasetIDs).Delete(&model.RagflowDatasetUser{}).Error
}

// DatasetIDsOf 用户可见的数据集ID
func (r *LinkRepository) DatasetIDsOf(ctx context.Context, db *gorm.DB, userID uint) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&model.RagflowDatasetUser{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("dataset_id", &ids).Error
	return ids, err
}

// DatasetLinksPaged 用户的数据集归属分页，按建立顺序
func (r *LinkRepository) DatasetLinksPaged(ctx context.Context, db *gorm.DB, userID uint, page, pageSize int) ([]model.RagflowDatasetUser, int64, error) {
	return r.Datasets.GetPaged(ctx, db, mysql.PageQuery{
		Page:     page,
		PageSize: pageSize,
		Filters:  mysql.Filters{"user_id": userID},
		OrderBy:  "id",
	})
}

// DatasetRole 用户在数据集上的角色，没有归属时返回空串
func (r *LinkRepository) DatasetRole(ctx context.Context, db *gorm.DB, userID uint, datasetID string) (model.DatasetUserRole, error) {
	var link model.RagflowDatasetUser
	err := db.WithContext(ctx).
		Where("user_id = ? AND dataset_id = ?", userID, datasetID).
		Limit(1).Find(&link).Error
	if err != nil {
		return "", err
	}
	return link.Role, nil
}

// LinkDocuments 批量记录文档归属
func (r *LinkRepository) LinkDocuments(ctx context.Context, db *gorm.DB, links []*model.RagflowDocumentUser) error {
	return r.Documents.BulkCreate(ctx, db, links)
}

// DocumentLinks 按文档ID加载归属记录
func (r *LinkRepository) DocumentLinks(ctx context.Context, db *gorm.DB, datasetID string, documentIDs []string) ([]model.RagflowDocumentUser, error) {
	var links []model.RagflowDocumentUser
	if len(documentIDs) == 0 {
		return links, nil
	}
	err := db.WithContext(ctx).
		Where("dataset_id = ? AND document_id IN ?", datasetID, documentIDs).
		Find(&links).Error
	return links, err
}

// UnlinkDocuments 删除文档归属
func (r *LinkRepository) UnlinkDocuments(ctx context.Context, db *gorm.DB, datasetID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("dataset_id = ? AND document_id IN ?", datasetID, documentIDs).
		Delete(&model.RagflowDocumentUser{}).Error
}
