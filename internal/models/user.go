package models

type User struct {
	BaseModel
	Email        string   `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	CompanyName  string   `json:"company_name"`
	Role         UserRole `gorm:"default:'member'" json:"role"`
	IsActive     bool     `gorm:"default:true" json:"is_active"`
	IsVerified   bool     `gorm:"default:false" json:"is_verified"`
}
