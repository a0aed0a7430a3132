package model

import (
	"strings"
	"time"

	"freelancehub/pkg/rbac"
)

const (
	JobStatusOpen       = "open"
	JobStatusInProgress = "in-progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
	JobStatusClosed     = "closed"
)

const (
	BudgetTypeFixed  = "fixed"
	BudgetTypeHourly = "hourly"
)

var (
	JobStatuses      = []string{JobStatusOpen, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled, JobStatusClosed}
	BudgetTypes      = []string{BudgetTypeFixed, BudgetTypeHourly}
	JobCategories    = []string{"web-development", "mobile-development", "design", "writing", "marketing", "data-science", "devops", "other"}
	JobTimelines     = []string{"less-than-1-week", "1-2-weeks", "2-4-weeks", "1-3-months", "3-6-months", "more-than-6-months"}
	ExperienceLevels = []string{"entry", "intermediate", "expert"}
)

type Budget struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type Job struct {
	ID               int64     `json:"id"`
	ClientID         int64     `json:"client_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	SkillsRequired   []string  `json:"skills_required"`
	Budget           Budget    `json:"budget"`
	BudgetType       string    `json:"budget_type"`
	Timeline         string    `json:"timeline"`
	ExperienceLevel  string    `json:"experience_level"`
	Status           string    `json:"status"`
	Location         string    `json:"location"`
	ApplicationCount int       `json:"application_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (j *Job) Parties() rbac.Parties {
	return rbac.Parties{Owner: j.ClientID, Client: j.ClientID}
}

// Application is a freelancer's entry on a job, mirrored from their proposal.
type Application struct {
	ID                int64     `json:"id"`
	JobID             int64     `json:"job_id"`
	FreelancerID      int64     `json:"freelancer_id"`
	ProposalID        int64     `json:"proposal_id"`
	ProposalText      string    `json:"proposal_text"`
	ProposedBudget    float64   `json:"proposed_budget"`
	EstimatedDuration string    `json:"estimated_duration"`
	Status            string    `json:"status"`
	AppliedAt         time.Time `json:"applied_at"`
}

// JobFilter drives search; zero values mean "no constraint".
type JobFilter struct {
	Query           string
	Category        string
	BudgetType      string
	ExperienceLevel string
	Timeline        string
	Skills          []string
	MinBudget       *float64
	MaxBudget       *float64
	Status          string
	Sort            string
	Offset          int
	Limit           int
}

const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortBudgetHigh = "budget_high"
	SortBudgetLow  = "budget_low"
)

// NormalizeSkills trims, lowercases and dedupes skill tags, dropping empty ones.
// Stored and searched skills both go through it so every store matches the same way.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		sk = strings.ToLower(strings.TrimSpace(sk))
		if sk != "" && !Contains(out, sk) {
			out = append(out, sk)
		}
	}
	return out
}

// Contains reports whether v is one of values.
func Contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
