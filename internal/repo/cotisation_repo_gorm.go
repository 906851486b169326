package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ajeu-backend/internal/domain"
)

type CotisationRepo struct{ db *gorm.DB }

func NewCotisationRepo(db *gorm.DB) *CotisationRepo { return &CotisationRepo{db: db} }

func (r *CotisationRepo) Create(ctx context.Context, c *domain.Cotisation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CotisationRepo) FindByID(ctx context.Context, id uint) (*domain.Cotisation, error) {
	var c domain.Cotisation
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *CotisationRepo) FindByMatriculeYear(ctx context.Context, matriculeID uint, year int) (*domain.Cotisation, error) {
	var c domain.Cotisation
	err := r.db.WithContext(ctx).Where("matricule_id = ? AND annee = ?", matriculeID, year).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &c, err
}

func (r *CotisationRepo) ListByMatricule(ctx context.Context, matriculeID uint) ([]domain.Cotisation, error) {
	var cs []domain.Cotisation
	err := r.db.WithContext(ctx).Where("matricule_id = ?", matriculeID).Order("annee ASC, id ASC").Find(&cs).Error
	return cs, err
}

func (r *CotisationRepo) Update(ctx context.Context, c *domain.Cotisation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

// Stats 全部会费记录数与已缴数
func (r *CotisationRepo) Stats(ctx context.Context) (total, paid int64, err error) {
	db := r.db.WithContext(ctx).Model(&domain.Cotisation{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&domain.Cotisation{}).Where("cotised = ?", true).Count(&paid).Error
	return total, paid, err
}
