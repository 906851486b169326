package service

import (
	"context"

	"gorm.io/gorm"

	"ajeu-backend/internal/core/apperr"
	"ajeu-backend/internal/repo"
)

type UserService struct{ db *gorm.DB }

func NewUserService(db *gorm.DB) *UserService { return &UserService{db: db} }

func (s *UserService) List(ctx context.Context) ([]UserSummary, error) {
	us, err := repo.NewUserRepo(s.db).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(us))
	for _, u := range us {
		out = append(out, userSummary(u))
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*UserSummary, error) {
	u, err := repo.NewUserRepo(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	v := userSummary(*u)
	return &v, nil
}
