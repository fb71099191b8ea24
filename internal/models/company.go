package models

import "time"

type Company struct {
	CompanyBucket      int        `db:"company_bucket"`
	CompanyID          string     `db:"company_id"`
	Email              string     `db:"email"`
	PasswordHash       string     `db:"password_hash"`
	CompanyName        string     `db:"company_name"`
	Industry           string     `db:"industry"`
	Size               string     `db:"size"`
	Website            string     `db:"website"`
	Description        string     `db:"description"`
	Headquarters       string     `db:"headquarters"`
	FoundedYear        int        `db:"founded_year"`
	Phone              string     `db:"phone"`
	Address            string     `db:"address"`
	City               string     `db:"city"`
	State              string     `db:"state"`
	Country            string     `db:"country"`
	ContactPersonName  string     `db:"contact_person_name"`
	ContactPersonTitle string     `db:"contact_person_title"`
	ContactPersonEmail string     `db:"contact_person_email"`
	ContactPersonPhone string     `db:"contact_person_phone"`
	IsVerified         bool       `db:"is_verified"`
	IsBlocked          bool       `db:"is_blocked"`
	ProfileCompleted   bool       `db:"profile_completed"`
	RejectionReason    string     `db:"rejection_reason"`
	ReviewedAt         *time.Time `db:"reviewed_at"`
	ReviewedBy         string     `db:"reviewed_by"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at"`
}

// ProfileStep tracks the three-step onboarding progress for a company.
// CurrentStep only ever moves forward: 1 after registration, 3 once
// company details land, 4 when contact info completes the profile.
type ProfileStep struct {
	CompanyID               string     `db:"company_id"`
	BasicInfoCompleted      bool       `db:"basic_info_completed"`
	CompanyDetailsCompleted bool       `db:"company_details_completed"`
	ContactInfoCompleted    bool       `db:"contact_info_completed"`
	CurrentStep             int        `db:"current_step"`
	CreatedAt               time.Time  `db:"created_at"`
	UpdatedAt               *time.Time `db:"updated_at"`
}
