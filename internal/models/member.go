package models

type Role string

const (
	Member   Role = "member"
	Reviewer Role = "reviewer"
	Admin    Role = "admin"
)

type OrgMember struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Role     Role   `db:"role"`
	ChatID   *int64 `db:"chat_id"`
	IsActive bool   `db:"is_active"`
}

// Principal — аутентифицированный пользователь, приходит извне (identity
// provider), сервис ему доверяет и проверяет только права.
type Principal struct {
	ID   int64
	Role Role
}

func (p Principal) CanReview() bool { return p.Role == Reviewer || p.Role == Admin }

func (p Principal) IsAdmin() bool { return p.Role == Admin }
