package domain

import "time"

// Member roles
const (
	RolePresident = "president"
	RoleSecretary = "secretary"
	RoleMember    = "member"
)

// Member represents a registered member of the savings group. Authentication
// is handled outside this service; the password never passes through here.
type Member struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Username      string    `json:"username" db:"username"`
	Email         string    `json:"email" db:"email"`
	ContactNumber string    `json:"contact_number" db:"contact_number"`
	PanNumber     string    `json:"pan_number" db:"pan_number"`
	AadharNumber  string    `json:"aadhar_number" db:"aadhar_number"`
	Role          string    `json:"role" db:"role"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IsApprover reports whether the member may approve contributions and loans.
func (m *Member) IsApprover() bool {
	return m.Role == RolePresident || m.Role == RoleSecretary
}

type CreateMemberRequest struct {
	Name          string `json:"name" validate:"required"`
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contact_number" validate:"required"`
	PanNumber     string `json:"pan_number" validate:"required"`
	AadharNumber  string `json:"aadhar_number" validate:"required"`
	Role          string `json:"role" validate:"omitempty,oneof=president secretary member"`
}

type UpdateMemberRequest struct {
	Name          string `json:"name" validate:"required"`
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contact_number" validate:"required"`
	PanNumber     string `json:"pan_number" validate:"required"`
	AadharNumber  string `json:"aadhar_number" validate:"required"`
	Role          string `json:"role" validate:"required,oneof=president secretary member"`
}
