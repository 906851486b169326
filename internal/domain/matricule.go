package domain

import "time"

// Matricule 会员档案；Code 形如 AJEU2024KA042
type Matricule struct {
	ID               uint      `gorm:"primaryKey"`
	Code             string    `gorm:"size:32;uniqueIndex;not null"`
	Surname          string    `gorm:"column:nom;size:255;not null"`
	GivenName        string    `gorm:"column:prenom;size:255;not null"`
	EnrollmentAmount float64   `gorm:"column:montant_adhesion;type:decimal(10,2);not null"`
	EnrollmentYear   int       `gorm:"column:annee_adhesion;index;not null"`
	Commune          string    `gorm:"size:255"`
	Quarter          string    `gorm:"column:quartier;size:255"`
	Phone            string    `gorm:"size:20"`
	Email            string    `gorm:"size:180"`
	AvatarPath       string    `gorm:"size:255"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`

	Cotisations []Cotisation `gorm:"foreignKey:MatriculeID;constraint:OnDelete:CASCADE"`
}

// Cotisation 某一年度的会费记录
type Cotisation struct {
	ID          uint      `gorm:"primaryKey"`
	MatriculeID uint      `gorm:"index;not null"`
	Amount      float64   `gorm:"column:montant;type:decimal(10,0);not null"`
	Year        int       `gorm:"column:annee;not null"`
	Paid        bool      `gorm:"column:cotised;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// PaidFor 该年度是否已缴（找不到记录视为未缴）
func (m *Matricule) PaidFor(year int) bool {
	for _, c := range m.Cotisations {
		if c.Year == year {
			return c.Paid
		}
	}
	return false
}
