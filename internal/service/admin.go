package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/core/cache"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/repo"
)

type AdminService struct {
	db    *gorm.DB
	codes *CodeAllocator
	cache *cache.Cache
	log   *zap.Logger
}

func NewAdminService(db *gorm.DB, codes *CodeAllocator, c *cache.Cache, log *zap.Logger) *AdminService {
	return &AdminService{db: db, codes: codes, cache: c, log: log}
}

type UserListQuery struct {
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
	Limit  int    `form:"limit,default=20"`
	Q      string `form:"q"`
}

type AdminUserRow struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
	Matricule string    `json:"matricule"`
	CreatedAt time.Time `json:"createdAt"`
}

func adminUserRow(u *domain.User) AdminUserRow {
	return AdminUserRow{
		ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
		Roles: u.RoleSet(), Matricule: u.MatriculeCode(), CreatedAt: u.CreatedAt,
	}
}

type UserListOutput struct {
	Total int64          `json:"total"`
	Items []AdminUserRow `json:"items"`
}

func (s *AdminService) ListUsers(ctx context.Context, q UserListQuery) (*UserListOutput, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	us, total, err := repo.NewUserRepo(s.db).List(ctx, q.Q, q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	out := &UserListOutput{Total: total, Items: make([]AdminUserRow, 0, len(us))}
	for i := range us {
		out.Items = append(out.Items, adminUserRow(&us[i]))
	}
	return out, nil
}

type RolesInput struct {
	Grant  []string `json:"grant"  binding:"omitempty,dive,oneof=ROLE_MEMBER ROLE_ADMIN"`
	Revoke []string `json:"revoke" binding:"omitempty,dive,oneof=ROLE_MEMBER ROLE_ADMIN"`
}

// SetRoles 先授予后撤销；ROLE_USER 隐含，不落库
func (s *AdminService) SetRoles(ctx context.Context, id uint, in RolesInput) (*AdminUserRow, error) {
	var out AdminUserRow
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		users := repo.NewUserRepo(tx)
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user not found")
		}
		roles := []string{}
		for _, r := range append(slices.Clone([]string(u.Roles)), in.Grant...) {
			if r != domain.RoleUser && !slices.Contains(roles, r) && !slices.Contains(in.Revoke, r) {
				roles = append(roles, r)
			}
		}
		u.Roles = roles
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		out = adminUserRow(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Promote CLI 用：按邮箱授予 ROLE_ADMIN
func (s *AdminService) Promote(ctx context.Context, email string) (*AdminUserRow, error) {
	u, err := repo.NewUserRepo(s.db).FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return s.SetRoles(ctx, u.ID, RolesInput{Grant: []string{domain.RoleAdmin}})
}

type OpenCotisationInput struct {
	Annee   int     `json:"annee"   binding:"required,gte=1000,lte=9999"`
	Montant float64 `json:"montant" binding:"gte=0"`
	Cotised bool    `json:"cotised"`
}

// OpenCotisation 为某档案新开一个年度；同一年度只能有一条
func (s *AdminService) OpenCotisation(ctx context.Context, matriculeID uint, in OpenCotisationInput) (*CotisationView, error) {
	var out CotisationView
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		m, err := repo.NewMatriculeRepo(tx).FindByID(ctx, matriculeID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("matricule not found")
		}
		cots := repo.NewCotisationRepo(tx)
		dup, err := cots.FindByMatriculeYear(ctx, m.ID, in.Annee)
		if err != nil {
			return err
		}
		if dup != nil {
			return apperr.Conflict("cotisation already exists for this year")
		}
		c := &domain.Cotisation{MatriculeID: m.ID, Amount: in.Montant, Year: in.Annee, Paid: in.Cotised}
		if err := cots.Create(ctx, c); err != nil {
			return err
		}
		out = cotisationView(*c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	return &out, nil
}

type CotisationPatch struct {
	Montant *float64 `json:"montant" binding:"omitempty,gte=0"`
	Cotised *bool    `json:"cotised"`
}

func (s *AdminService) UpdateCotisation(ctx context.Context, id uint, in CotisationPatch) (*CotisationView, error) {
	var out CotisationView
	err := database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		cots := repo.NewCotisationRepo(tx)
		c, err := cots.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.NotFound("cotisation not found")
		}
		if in.Montant != nil {
			c.Amount = *in.Montant
		}
		if in.Cotised != nil {
			c.Paid = *in.Cotised
		}
		if err := cots.Update(ctx, c); err != nil {
			return err
		}
		out = cotisationView(*c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	return &out, nil
}

// Seed 写入演示档案（已存在同名档案时跳过），返回其 code
func (s *AdminService) Seed(ctx context.Context, mats *MatriculeService) (string, error) {
	var existing domain.Matricule
	err := s.db.WithContext(ctx).Where("nom = ? AND prenom = ?", "BROU", "YAO ERIC").First(&existing).Error
	if err == nil {
		return existing.Code, nil
	}
	if !database.IsNotFound(err) {
		return "", err
	}
	out, err := mats.Create(ctx, CreateMatriculeInput{Nom: "Brou", Prenom: "Yao Eric", MontantAdhesion: 500, AnneeAdhesion: 2020})
	if err != nil {
		return "", err
	}
	return out.Matricule.Code, nil
}
