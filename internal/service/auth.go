package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/core/auth"
	"ajeu-backend/internal/core/cache"
	"ajeu-backend/internal/core/database"
	"ajeu-backend/internal/domain"
	"ajeu-backend/internal/queue"
	"ajeu-backend/internal/repo"
	"ajeu-backend/pkg/utils"
)

// 注册时并发抢到同一 code / email 会触发唯一索引冲突，整体重试的次数
const registerAttempts = 3

type AuthService struct {
	db         *gorm.DB
	jwt        *auth.JWTer
	codes      *CodeAllocator
	cache      *cache.Cache
	refreshTTL time.Duration
	log        *zap.Logger
}

func NewAuthService(db *gorm.DB, jwt *auth.JWTer, codes *CodeAllocator, c *cache.Cache, refreshTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, codes: codes, cache: c, refreshTTL: refreshTTL, log: log}
}

type RegisterInput struct {
	FirstName string `json:"firstName" binding:"required,notblank,max=255"`
	LastName  string `json:"lastName"  binding:"required,notblank,max=255"`
	Matricule string `json:"matricule" binding:"required,notblank,max=32"`
	Email     string `json:"email"     binding:"required,email,max=180"`
	Password  string `json:"password"  binding:"required,notblank,max=4096"`
}

type RegisterOutput struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    AccountView `json:"user"`
}

// Register 校验会员码、邮箱唯一、首字母一致性，建账号并签发 JWT；全部在一个事务里
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	code := strings.ToUpper(strings.TrimSpace(in.Matricule))
	email := strings.TrimSpace(in.Email)
	if first == "" || last == "" || code == "" || email == "" || in.Password == "" {
		return nil, apperr.BadRequest("all fields are required")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password failed", err)
	}

	var out *RegisterOutput
	err = database.InTx(ctx, s.db, registerAttempts, func(tx *gorm.DB) error {
		mats, users := repo.NewMatriculeRepo(tx), repo.NewUserRepo(tx)

		m, err := mats.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.BadRequest("unknown membership code")
		}
		taken, err := users.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already in use")
		}
		owner, err := users.FindByMatriculeID(ctx, m.ID)
		if err != nil {
			return err
		}
		if owner != nil {
			return apperr.Conflict("membership code already registered")
		}

		if _, err := s.codes.Reconcile(ctx, mats, m, last, first, 0); err != nil {
			return err
		}
		m.Email = email
		if err := mats.Update(ctx, m); err != nil {
			return err
		}

		u := &domain.User{
			MatriculeID: &m.ID,
			Matricule:   m,
			Email:       email,
			Roles:       []string{domain.RoleMember},
			Password:    hash,
			FirstName:   first,
			LastName:    last,
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}

		evt, err := queue.NewOutboxMessage(queue.QueueMembers, queue.TypeMemberRegistered, queue.MemberRegistered{
			UserID: u.ID, Email: u.Email, Matricule: m.Code, FirstName: first, LastName: last,
		})
		if err != nil {
			return err
		}
		if err := repo.NewOutboxRepo(tx).Enqueue(ctx, evt); err != nil {
			return err
		}

		// 签名失败则整个注册回滚
		tok, err := s.jwt.Issue(uidString(u.ID), u.Email, u.RoleSet())
		if err != nil {
			return apperr.Internal("cannot issue token", err)
		}
		out = &RegisterOutput{Message: "registration successful", Token: tok, User: accountView(u)}
		return nil
	})
	if database.IsDuplicateKey(err) {
		return nil, apperr.Conflict("registration conflict, please retry")
	}
	if err != nil {
		return nil, err
	}
	// 档案的 code / 姓名 / 邮箱已变
	invalidate(ctx, s.cache, s.log)
	s.log.Info("member registered", zap.Uint("user_id", out.User.ID), zap.Stringp("matricule", out.User.Matricule))
	return out, nil
}

type LoginInput struct {
	Email    string `json:"email"    binding:"required,notblank"`
	Password string `json:"password" binding:"required,notblank"`
}

type LoginUser struct {
	AccountView
	Cotisations []CotisationView `json:"cotisations"`
}

type LoginOutput struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	User         LoginUser `json:"user"`
}

// Login 校验口令，签发 JWT 与 30 天刷新令牌，并带回会费历史
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	u, err := repo.NewUserRepo(s.db).FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(in.Password, u.Password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	tok, err := s.jwt.Issue(uidString(u.ID), u.Email, u.RoleSet())
	if err != nil {
		return nil, apperr.Internal("cannot issue token", err)
	}
	rt, err := s.newRefreshToken(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	return &LoginOutput{
		Token:        tok,
		RefreshToken: rt.Token,
		User:         LoginUser{AccountView: accountView(u), Cotisations: userCotisations(u)},
	}, nil
}

func (s *AuthService) newRefreshToken(ctx context.Context, username string) (*domain.RefreshToken, error) {
	raw, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperr.Internal("cannot create refresh token", err)
	}
	rt := &domain.RefreshToken{Token: raw, Username: username, Valid: time.Now().Add(s.refreshTTL)}
	if err := repo.NewTokenRepo(s.db).Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required,notblank"`
}

type RefreshOutput struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh 用未过期的刷新令牌换新 JWT；刷新令牌本身不轮换
func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (*RefreshOutput, error) {
	rt, err := repo.NewTokenRepo(s.db).Find(ctx, in.RefreshToken)
	if err != nil {
		return nil, err
	}
	if rt == nil || rt.Expired(time.Now()) {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	u, err := repo.NewUserRepo(s.db).FindByEmail(ctx, rt.Username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized("invalid refresh token")
	}
	tok, err := s.jwt.Issue(uidString(u.ID), u.Email, u.RoleSet())
	if err != nil {
		return nil, apperr.Internal("cannot issue token", err)
	}
	return &RefreshOutput{Token: tok, RefreshToken: rt.Token}, nil
}

type LogoutInput struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutOutput struct {
	Message string `json:"message"`
}

// Logout 撤销当前账号名下传入的刷新令牌；别人的令牌不受影响。JWT 由客户端丢弃
func (s *AuthService) Logout(ctx context.Context, email string, in LogoutInput) (*LogoutOutput, error) {
	if t := strings.TrimSpace(in.RefreshToken); t != "" {
		if err := repo.NewTokenRepo(s.db).DeleteOwned(ctx, t, email); err != nil {
			return nil, err
		}
	}
	return &LogoutOutput{Message: "logged out, discard the token on the client"}, nil
}

func (s *AuthService) Me(ctx context.Context, uid uint) (*AccountView, error) {
	u, err := repo.NewUserRepo(s.db).FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized("user no longer exists")
	}
	v := accountView(u)
	return &v, nil
}

// PurgeExpiredTokens 供 CLI / 定时任务调用
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return repo.NewTokenRepo(s.db).DeleteExpired(ctx, time.Now())
}
