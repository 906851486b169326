package service

import (
	"strconv"
	"time"

	"ajeu-backend/internal/domain"
)

// 对外 JSON 投影：每个实体只有一种视图，各接口复用

const dateLayout = "2006-01-02"

type CotisationView struct {
	ID        uint    `json:"id"`
	Montant   float64 `json:"montant"`
	Annee     int     `json:"annee"`
	Cotised   bool    `json:"cotised"`
	CreatedAt string  `json:"createdAt"`
}

func cotisationView(c domain.Cotisation) CotisationView {
	return CotisationView{ID: c.ID, Montant: c.Amount, Annee: c.Year, Cotised: c.Paid, CreatedAt: c.CreatedAt.Format(dateLayout)}
}

func cotisationViews(cs []domain.Cotisation) []CotisationView {
	out := make([]CotisationView, 0, len(cs))
	for _, c := range cs {
		out = append(out, cotisationView(c))
	}
	return out
}

type MatriculeView struct {
	ID              uint    `json:"id"`
	Code            string  `json:"code"`
	Nom             string  `json:"nom"`
	Prenom          string  `json:"prenom"`
	MontantAdhesion float64 `json:"montantAdhesion"`
	AnneeAdhesion   int     `json:"anneeAdhesion"`
}

func matriculeView(m domain.Matricule) MatriculeView {
	return MatriculeView{
		ID: m.ID, Code: m.Code, Nom: m.Surname, Prenom: m.GivenName,
		MontantAdhesion: m.EnrollmentAmount, AnneeAdhesion: m.EnrollmentYear,
	}
}

func matriculeViews(ms []domain.Matricule) []MatriculeView {
	out := make([]MatriculeView, 0, len(ms))
	for _, m := range ms {
		out = append(out, matriculeView(m))
	}
	return out
}

// MemberView 成员列表项：档案 + 联系方式 + 会费明细；Cotised 指入会年份是否已缴
type MemberView struct {
	MatriculeView
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	Commune     string           `json:"commune"`
	Quartier    string           `json:"quartier"`
	AvatarPath  string           `json:"avatarPath"`
	CreatedAt   string           `json:"createdAt"`
	Cotised     bool             `json:"cotised"`
	Cotisations []CotisationView `json:"cotisations"`
}

func memberView(m domain.Matricule) MemberView {
	return MemberView{
		MatriculeView: matriculeView(m),
		Email:         m.Email,
		Phone:         m.Phone,
		Commune:       m.Commune,
		Quartier:      m.Quarter,
		AvatarPath:    m.AvatarPath,
		CreatedAt:     m.CreatedAt.Format(dateLayout),
		Cotised:       m.PaidFor(m.EnrollmentYear),
		Cotisations:   cotisationViews(m.Cotisations),
	}
}

// AccountView 当前登录用户
type AccountView struct {
	ID         uint     `json:"id"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	AvatarPath string   `json:"avatarPath"`
	Matricule  *string  `json:"matricule"`
}

func accountView(u *domain.User) AccountView {
	v := AccountView{
		ID: u.ID, Email: u.Email, Roles: u.RoleSet(),
		FirstName: u.FirstName, LastName: u.LastName, AvatarPath: u.AvatarPath,
	}
	if u.Matricule != nil {
		code := u.Matricule.Code
		v.Matricule = &code
	}
	return v
}

func userCotisations(u *domain.User) []CotisationView {
	if u.Matricule == nil {
		return []CotisationView{}
	}
	return cotisationViews(u.Matricule.Cotisations)
}

// UserSummary 其他用户可见的字段
type UserSummary struct {
	ID         uint   `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	AvatarPath string `json:"avatarPath"`
}

func userSummary(u domain.User) UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, AvatarPath: u.AvatarPath}
}

type ProfileView struct {
	AccountView
	Commune     string           `json:"commune"`
	Quartier    string           `json:"quartier"`
	Phone       string           `json:"phone"`
	Cotisations []CotisationView `json:"cotisations"`
}

func profileView(u *domain.User) ProfileView {
	return ProfileView{
		AccountView: accountView(u),
		Commune:     u.Commune,
		Quartier:    u.Quarter,
		Phone:       u.Phone,
		Cotisations: userCotisations(u),
	}
}

type ConversationView struct {
	ID              uint      `json:"id"`
	ParticipantsID  []string  `json:"participantsId"`
	RecipientID     *string   `json:"recipientId"`
	NameParticipant string    `json:"nameParticipant"`
	NameRecipient   string    `json:"nameRecipient"`
	LastMessage     *string   `json:"lastMessage"`
	LastDate        time.Time `json:"lastDate"`
	MessageStatus   string    `json:"messageStatus"`
	UnreadCount     int       `json:"unreadCount"`
	Online          bool      `json:"online"`
	NewConversation bool      `json:"newConversation"`
}

func conversationView(c *domain.Conversation) ConversationView {
	ids := []string(c.ParticipantsID)
	if ids == nil {
		ids = []string{}
	}
	return ConversationView{
		ID: c.ID, ParticipantsID: ids, RecipientID: c.RecipientID,
		NameParticipant: c.NameParticipant, NameRecipient: c.NameRecipient,
		LastMessage: c.LastMessage, LastDate: c.LastDate, MessageStatus: c.MessageStatus,
		UnreadCount: c.UnreadCount, Online: c.Online, NewConversation: c.NewConversation,
	}
}

type MessageView struct {
	ID             uint       `json:"id"`
	ConversationID uint       `json:"conversationId"`
	EnvoyeurID     string     `json:"envoyeurId"`
	Content        string     `json:"content"`
	SentAt         time.Time  `json:"sentAt"`
	DeliveredAt    *time.Time `json:"deliveredAt"`
	ReadAt         *time.Time `json:"readAt"`
}

func messageView(m *domain.Message) MessageView {
	return MessageView{
		ID: m.ID, ConversationID: m.ConversationID, EnvoyeurID: m.SenderID, Content: m.Content,
		SentAt: m.SentAt, DeliveredAt: m.DeliveredAt, ReadAt: m.ReadAt,
	}
}

func uidString(id uint) string { return strconv.FormatUint(uint64(id), 10) }
