package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/core/cache"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/repo"
)

// 成员列表、统计相关缓存前缀；档案 / 会费 / 资料变更后统一失效
const (
	cacheMembers = "members:"
	cacheStats   = "stats:"
)

func invalidate(ctx context.Context, c *cache.Cache, log *zap.Logger) {
	if err := c.Invalidate(ctx, cacheMembers, cacheStats); err != nil {
		log.Warn("cache invalidate failed", zap.Error(err))
	}
}

type MatriculeService struct {
	db    *gorm.DB
	codes *CodeAllocator
	cache *cache.Cache
	log   *zap.Logger
}

func NewMatriculeService(db *gorm.DB, codes *CodeAllocator, c *cache.Cache, log *zap.Logger) *MatriculeService {
	return &MatriculeService{db: db, codes: codes, cache: c, log: log}
}

func (s *MatriculeService) List(ctx context.Context) ([]MatriculeView, error) {
	ms, err := repo.NewMatriculeRepo(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	return matriculeViews(ms), nil
}

type CreateMatriculeInput struct {
	Nom             string  `json:"nom"             binding:"required,notblank,max=255"`
	Prenom          string  `json:"prenom"          binding:"required,notblank,max=255"`
	MontantAdhesion float64 `json:"montantAdhesion" binding:"required,gt=0"`
	AnneeAdhesion   int     `json:"anneeAdhesion"   binding:"required,gte=1000,lte=9999"`
	Commune         string  `json:"commune"         binding:"max=255"`
	Quartier        string  `json:"quartier"        binding:"max=255"`
	Phone           string  `json:"phone"           binding:"max=20"`
	Email           string  `json:"email"           binding:"omitempty,email,max=180"`
}

type IDRef struct {
	ID   uint   `json:"id"`
	Code string `json:"code,omitempty"`
}

type CreateMatriculeOutput struct {
	Message    string `json:"message"`
	Matricule  IDRef  `json:"matricule"`
	Cotisation IDRef  `json:"cotisation"`
}

// Create 姓名转大写、分配 code，并为入会年份建一条未缴会费
func (s *MatriculeService) Create(ctx context.Context, in CreateMatriculeInput) (*CreateMatriculeOutput, error) {
	nom := strings.ToUpper(strings.TrimSpace(in.Nom))
	prenom := strings.ToUpper(strings.TrimSpace(in.Prenom))
	initials, err := Initials(nom, prenom)
	if err != nil {
		return nil, err
	}

	var out *CreateMatriculeOutput
	err = database.InTx(ctx, s.db, registerAttempts, func(tx *gorm.DB) error {
		mats := repo.NewMatriculeRepo(tx)
		code, err := s.codes.Allocate(ctx, mats, in.AnneeAdhesion, initials)
		if err != nil {
			return err
		}
		m := &domain.Matricule{
			Code:             code,
			Surname:          nom,
			GivenName:        prenom,
			EnrollmentAmount: in.MontantAdhesion,
			EnrollmentYear:   in.AnneeAdhesion,
			Commune:          strings.TrimSpace(in.Commune),
			Quarter:          strings.TrimSpace(in.Quartier),
			Phone:            strings.TrimSpace(in.Phone),
			Email:            strings.TrimSpace(in.Email),
		}
		if err := mats.Create(ctx, m); err != nil {
			return err
		}
		c := &domain.Cotisation{MatriculeID: m.ID, Amount: 0, Year: in.AnneeAdhesion, Paid: false}
		if err := repo.NewCotisationRepo(tx).Create(ctx, c); err != nil {
			return err
		}
		out = &CreateMatriculeOutput{
			Message:    "matricule and cotisation created",
			Matricule:  IDRef{ID: m.ID, Code: m.Code},
			Cotisation: IDRef{ID: c.ID},
		}
		return nil
	})
	if database.IsDuplicateKey(err) {
		return nil, apperr.Conflict("membership code conflict, please retry")
	}
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	return out, nil
}

type UpdateMatriculeInput struct {
	Nom             *string  `json:"nom"             binding:"omitempty,notblank,max=255"`
	Prenom          *string  `json:"prenom"          binding:"omitempty,notblank,max=255"`
	MontantAdhesion *float64 `json:"montantAdhesion" binding:"omitempty,gt=0"`
	AnneeAdhesion   *int     `json:"anneeAdhesion"   binding:"omitempty,gte=1000,lte=9999"`
}

// Update 改名或改年份时重算 code，并同步关联账号的姓名；返回最新列表
func (s *MatriculeService) Update(ctx context.Context, id uint, in UpdateMatriculeInput) ([]MatriculeView, error) {
	err := database.InTx(ctx, s.db, registerAttempts, func(tx *gorm.DB) error {
		mats, users := repo.NewMatriculeRepo(tx), repo.NewUserRepo(tx)
		m, err := mats.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("matricule not found")
		}

		nom, prenom, year := m.Surname, m.GivenName, 0
		if in.Nom != nil {
			nom = *in.Nom
		}
		if in.Prenom != nil {
			prenom = *in.Prenom
		}
		if in.AnneeAdhesion != nil {
			year = *in.AnneeAdhesion
			m.EnrollmentYear = year
		}
		if in.MontantAdhesion != nil {
			m.EnrollmentAmount = *in.MontantAdhesion
		}
		if _, err := s.codes.Reconcile(ctx, mats, m, nom, prenom, year); err != nil {
			return err
		}
		if err := mats.Update(ctx, m); err != nil {
			return err
		}

		u, err := users.FindByMatriculeID(ctx, m.ID)
		if err != nil {
			return err
		}
		if u != nil {
			u.LastName, u.FirstName = m.Surname, m.GivenName
			if err := users.Update(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	if database.IsDuplicateKey(err) {
		return nil, apperr.Conflict("membership code conflict, please retry")
	}
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	return s.List(ctx)
}

// Delete 删除会费与档案，关联账号保留但解除绑定；返回最新列表
func (s *MatriculeService) Delete(ctx context.Context, id uint) ([]MatriculeView, error) {
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		if err := repo.NewUserRepo(tx).DetachMatricule(ctx, id); err != nil {
			return err
		}
		ok, err := repo.NewMatriculeRepo(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("matricule not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	return s.List(ctx)
}
