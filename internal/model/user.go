package model

import "time"

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Verified     bool      `json:"verified"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is stored as a jsonb blob. Skills/Education/Certifications belong to
// freelancers, the Company* fields and PastProjects to clients.
type Profile struct {
	Bio        string   `json:"bio,omitempty"`
	Country    string   `json:"country,omitempty"`
	PictureURL string   `json:"picture_url,omitempty"`
	Languages  []string `json:"languages,omitempty"`

	Skills         []string `json:"skills,omitempty"`
	Education      []string `json:"education,omitempty"`
	Certifications []string `json:"certifications,omitempty"`

	CompanyName  string   `json:"company_name,omitempty"`
	CompanyInfo  string   `json:"company_info,omitempty"`
	CompanyLink  string   `json:"company_link,omitempty"`
	PastProjects []string `json:"past_projects,omitempty"`
}

// PublicUser is what other users see.
type PublicUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Role: u.Role, Profile: u.Profile, CreatedAt: u.CreatedAt}
}
