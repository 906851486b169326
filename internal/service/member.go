package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/core/cache"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/core/storage"
	"ajeu-backend/internal/repo"
)

type MemberService struct {
	db      *gorm.DB
	codes   *CodeAllocator
	cache   *cache.Cache
	store   *storage.Local
	baseURL string
	log     *zap.Logger
}

func NewMemberService(db *gorm.DB, codes *CodeAllocator, c *cache.Cache, store *storage.Local, baseURL string, log *zap.Logger) *MemberService {
	return &MemberService{db: db, codes: codes, cache: c, store: store, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

type MembersQuery struct {
	Year int `form:"year" binding:"omitempty,gte=0,lte=9999"`
}

type MembersOutput struct {
	Total int64        `json:"total"`
	Data  []MemberView `json:"data"`
}

// Members 按入会年份过滤（0 为全部）；Total 始终是全部档案数
func (s *MemberService) Members(ctx context.Context, q MembersQuery) (*MembersOutput, error) {
	key := fmt.Sprintf("%s%d", cacheMembers, q.Year)
	return cache.GetOrLoadJSON(s.cache, ctx, key, 0, func(ctx context.Context) (*MembersOutput, error) {
		mats := repo.NewMatriculeRepo(s.db)
		ms, err := mats.ListWithCotisations(ctx, q.Year)
		if err != nil {
			return nil, err
		}
		total, err := mats.Count(ctx)
		if err != nil {
			return nil, err
		}
		out := &MembersOutput{Total: total, Data: make([]MemberView, 0, len(ms))}
		for _, m := range ms {
			out.Data = append(out.Data, memberView(m))
		}
		return out, nil
	})
}

type Stats struct {
	TotalMembers int64 `json:"totalMembers"`
	PaidCount    int64 `json:"paidCount"`
	NoPaidCount  int64 `json:"noPaidCount"`
}

type ProfileOutput struct {
	Profile ProfileView `json:"profile"`
	Stats   Stats       `json:"stats"`
}

func (s *MemberService) stats(ctx context.Context) (*Stats, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, cacheStats+"cotisations", 0, func(ctx context.Context) (*Stats, error) {
		total, paid, err := repo.NewCotisationRepo(s.db).Stats(ctx)
		if err != nil {
			return nil, err
		}
		return &Stats{TotalMembers: total, PaidCount: paid, NoPaidCount: total - paid}, nil
	})
}

// Profile 当前用户资料 + 全体会费统计
func (s *MemberService) Profile(ctx context.Context, uid uint) (*ProfileOutput, error) {
	u, err := repo.NewUserRepo(s.db).FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized("user no longer exists")
	}
	st, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Profile: profileView(u), Stats: *st}, nil
}

type ProfileInput struct {
	FirstName string  `json:"firstName" binding:"required,notblank,max=255"`
	LastName  string  `json:"lastName"  binding:"required,notblank,max=255"`
	Phone     *string `json:"phone"     binding:"omitempty,max=20"`
	Commune   *string `json:"commune"   binding:"omitempty,max=255"`
	Quartier  *string `json:"quartier"  binding:"omitempty,max=255"`
}

type ProfileUser struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Commune    string `json:"commune"`
	Quartier   string `json:"quartier"`
	AvatarPath string `json:"avatarPath"`
	Matricule  string `json:"matricule,omitempty"`
}

type ProfileUpdateOutput struct {
	Message string      `json:"message"`
	User    ProfileUser `json:"user"`
}

func keep(in *string, cur string) string {
	if in == nil {
		return cur
	}
	return strings.TrimSpace(*in)
}

// UpdateProfile 更新账号资料；有关联档案时在同一事务里同步档案并按需重算 code
func (s *MemberService) UpdateProfile(ctx context.Context, uid uint, in ProfileInput) (*ProfileUpdateOutput, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return nil, apperr.BadRequest("first name and last name are required")
	}

	var out *ProfileUpdateOutput
	err := database.InTx(ctx, s.db, registerAttempts, func(tx *gorm.DB) error {
		users, mats := repo.NewUserRepo(tx), repo.NewMatriculeRepo(tx)
		u, err := users.FindByID(ctx, uid)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Unauthorized("user no longer exists")
		}

		u.FirstName, u.LastName = first, last
		u.Phone = keep(in.Phone, u.Phone)
		u.Commune = keep(in.Commune, u.Commune)
		u.Quarter = keep(in.Quartier, u.Quarter)

		if m := u.Matricule; m != nil {
			if _, err := s.codes.Reconcile(ctx, mats, m, last, first, 0); err != nil {
				return err
			}
			m.Phone, m.Commune, m.Quarter = u.Phone, u.Commune, u.Quarter
			if err := mats.Update(ctx, m); err != nil {
				return err
			}
		}
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		out = &ProfileUpdateOutput{
			Message: "profile updated",
			User: ProfileUser{
				FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
				Phone: u.Phone, Commune: u.Commune, Quartier: u.Quarter,
				AvatarPath: u.AvatarPath, Matricule: u.MatriculeCode(),
			},
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

type AvatarOutput struct {
	AvatarURL string `json:"avatarUrl"`
}

// UploadAvatar 保存图片并写到账号与关联档案
func (s *MemberService) UploadAvatar(ctx context.Context, uid uint, r io.Reader) (*AvatarOutput, error) {
	p, err := s.store.SaveAvatar(r)
	if err != nil {
		return nil, err
	}
	err = database.InTx(ctx, s.db, 1, func(tx *gorm.DB) error {
		users := repo.NewUserRepo(tx)
		u, err := users.FindByID(ctx, uid)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Unauthorized("user no longer exists")
		}
		u.AvatarPath = p
		if err := users.Update(ctx, u); err != nil {
			return err
		}
		if u.Matricule != nil {
			u.Matricule.AvatarPath = p
			return repo.NewMatriculeRepo(tx).Update(ctx, u.Matricule)
		}
		return nil
	})
	if err != nil {
		// 事务失败时文件无人引用
		if rmErr := s.store.Remove(p); rmErr != nil {
			s.log.Warn("remove orphan avatar failed", zap.String("path", p), zap.Error(rmErr))
		}
		return nil, err
	}
	invalidate(ctx, s.cache, s.log)
	s.log.Info("avatar uploaded", zap.Uint("user_id", uid), zap.String("path", p))
	return &AvatarOutput{AvatarURL: s.baseURL + p}, nil
}
