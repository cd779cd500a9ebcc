// db/repo_audit.go
package db

import (
	"context"
	"fmt"

	"tkj_lending_tool/models"
)

func (r *Repo) LogAudit(ctx context.Context, entry *models.AuditLog) error {
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries first. limit <= 0 means 100.
func (r *Repo) ListAudit(ctx context.Context, targetType string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.DB.WithContext(ctx).Model(&models.AuditLog{})
	if targetType != "" {
		q = q.Where("target_type = ?", targetType)
	}
	logs := make([]models.AuditLog, 0)
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, mapError("list audit", err)
	}
	return logs, nil
}
