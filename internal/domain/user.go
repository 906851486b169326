package domain

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser   = "ROLE_USER"
	RoleMember = "ROLE_MEMBER"
	RoleAdmin  = "ROLE_ADMIN"
)

type User struct {
	ID          uint                        `gorm:"primaryKey"`
	MatriculeID *uint                       `gorm:"uniqueIndex"`
	Matricule   *Matricule                  `gorm:"constraint:OnDelete:SET NULL"`
	Email       string                      `gorm:"size:180;uniqueIndex;not null"`
	Roles       datatypes.JSONSlice[string] `gorm:"not null"`
	Password    string                      `gorm:"size:255;not null"`
	FirstName   string                      `gorm:"size:255;not null"`
	LastName    string                      `gorm:"size:255;not null"`
	Commune     string                      `gorm:"size:255"`
	Quarter     string                      `gorm:"column:quartier;size:255"`
	Phone       string                      `gorm:"size:20"`
	AvatarPath  string                      `gorm:"size:255"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime"`
}

// RoleSet 存储的角色 + 隐含的 ROLE_USER，去重且有序
func (u *User) RoleSet() []string {
	out := []string{}
	for _, r := range u.Roles {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	if !slices.Contains(out, RoleUser) {
		out = append(out, RoleUser)
	}
	return out
}

func (u *User) HasRole(role string) bool { return slices.Contains(u.RoleSet(), role) }

// MatriculeCode 未关联时为空串
func (u *User) MatriculeCode() string {
	if u.Matricule == nil {
		return ""
	}
	return u.Matricule.Code
}
