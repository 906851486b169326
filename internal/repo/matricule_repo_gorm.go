package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ajeu-backend/internal/domain"
)

type MatriculeRepo struct{ db *gorm.DB }

// NewMatriculeRepo db 可以是事务句柄
func NewMatriculeRepo(db *gorm.DB) *MatriculeRepo { return &MatriculeRepo{db: db} }

func byYear(db *gorm.DB) *gorm.DB { return db.Order("annee ASC, id ASC") }

func (r *MatriculeRepo) Create(ctx context.Context, m *domain.Matricule) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (r *MatriculeRepo) FindByID(ctx context.Context, id uint) (*domain.Matricule, error) {
	var m domain.Matricule
	err := r.db.WithContext(ctx).Preload("Cotisations", byYear).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

func (r *MatriculeRepo) FindByCode(ctx context.Context, code string) (*domain.Matricule, error) {
	var m domain.Matricule
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

func (r *MatriculeRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Matricule{}).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

// CodesWithPrefix 某个 AJEU<year><initials> 前缀下已占用的全部 code
func (r *MatriculeRepo) CodesWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&domain.Matricule{}).
		Where("code LIKE ?", prefix+"%").
		Pluck("code", &codes).Error
	return codes, err
}

func (r *MatriculeRepo) List(ctx context.Context) ([]domain.Matricule, error) {
	var ms []domain.Matricule
	err := r.db.WithContext(ctx).Order("id ASC").Find(&ms).Error
	return ms, err
}

// ListWithCotisations year<=0 表示全部年份
func (r *MatriculeRepo) ListWithCotisations(ctx context.Context, year int) ([]domain.Matricule, error) {
	q := r.db.WithContext(ctx).Preload("Cotisations", byYear).Order("id ASC")
	if year > 0 {
		q = q.Where("annee_adhesion = ?", year)
	}
	var ms []domain.Matricule
	err := q.Find(&ms).Error
	return ms, err
}

func (r *MatriculeRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Matricule{}).Count(&n).Error
	return n, err
}

func (r *MatriculeRepo) Update(ctx context.Context, m *domain.Matricule) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error
}

// Delete 先删会费再删档案；返回是否真的删除了档案
func (r *MatriculeRepo) Delete(ctx context.Context, id uint) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("matricule_id = ?", id).Delete(&domain.Cotisation{}).Error; err != nil {
		return false, err
	}
	res := db.Delete(&domain.Matricule{}, id)
	return res.RowsAffected > 0, res.Error
}
