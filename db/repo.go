package db

import (
	"context"
	"errors"
	"strings"

	"tkj_lending_tool/models"

	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// NilIfBlank trims s and returns nil for a nil or blank value, so optional text columns
// store NULL rather than "".
func NilIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Tx runs fn inside one transaction. The Repo handed to fn is bound to the transaction;
// fn must not use the outer Repo, which on a single-connection pool would block.
// Returned errors are mapped into the package taxonomy.
func (r *Repo) Tx(ctx context.Context, fn func(tx *Repo) error) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{DB: tx})
	})
	return mapError("transaction", err)
}

// Admins

func (r *Repo) CreateAdmin(ctx context.Context, a *models.Admin) error {
	a.Username = strings.ToLower(strings.TrimSpace(a.Username))
	err := r.DB.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return mapError("create admin", err)
}

func (r *Repo) FindAdminByID(ctx context.Context, id uint) (*models.Admin, error) {
	var a models.Admin
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, mapError("find admin", err)
	}
	return &a, nil
}

func (r *Repo) FindAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := r.DB.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&a).Error; err != nil {
		return nil, mapError("find admin", err)
	}
	return &a, nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Admin{}).Count(&n).Error
	return n, mapError("count admins", err)
}

func (r *Repo) TouchAdminLogin(ctx context.Context, id uint, ip string) error {
	// database clock and an in-place increment, concurrent logins do not overwrite each other
	return mapError("touch admin login", r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": gorm.Expr("CURRENT_TIMESTAMP"),
			"last_seen_at":  gorm.Expr("CURRENT_TIMESTAMP"),
			"login_count":   gorm.Expr("COALESCE(login_count, 0) + 1"),
			"last_login_ip": ip,
		}).Error)
}

func (r *Repo) UpdateAdminPassword(ctx context.Context, id uint, hash string) error {
	res := r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return mapError("update admin password", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) TouchAdminSeen(ctx context.Context, id uint) error {
	return mapError("touch admin seen", r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error)
}
