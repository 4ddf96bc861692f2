package models

// TeamMember - участник команды владельца аккаунта.
// Учитывается только для подсчета против Plan.MaxTeamMembers
type TeamMember struct {
	BaseModel
	OwnerID            string   `gorm:"type:uuid;not null;index" json:"owner_id"`
	MemberEmail        string   `gorm:"not null" json:"member_email"`
	Role               TeamRole `gorm:"default:'member'" json:"role"`
	InvitationToken    string   `json:"-"`
	InvitationAccepted bool     `gorm:"default:false" json:"invitation_accepted"`
}
