package domain

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Label() string {
	if r == RoleAdmin {
		return "ADMIN"
	}
	return "USER"
}

type Identity struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// Session is the live in-memory authentication state. A session exists only
// between a successful login/restore and the next logout or invalidation.
type Session struct {
	Role     Role
	Token    string
	Identity Identity
}

func (s Session) Valid() bool {
	return s.Token != "" && s.Identity.ID != ""
}

// StoredAuth is the persisted mirror of a session: the token plus the identity
// record, without the role. The role is re-derived from the token on restore.
type StoredAuth struct {
	Token string   `json:"token"`
	Model Identity `json:"model"`
}

func (a StoredAuth) Valid() bool {
	return a.Token != "" && a.Model.ID != ""
}
