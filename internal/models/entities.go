package models

import "time"

// Profile is the user's profile row.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fact is a learned piece of knowledge about the user.
type Fact struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Category   string    `json:"category"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Preference is a single user setting.
type Preference struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session groups messages of one conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// Message is one chat message.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Screenshot string    `json:"screenshot,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConsentScope names one gated content class.
type ConsentScope string

const (
	ScopePrompts     ConsentScope = "prompts"
	ScopeOutputs     ConsentScope = "outputs"
	ScopeTools       ConsentScope = "tools"
	ScopeScreenshots ConsentScope = "screenshots"
)

// Consent holds the per-scope storage consent flags of a user.
type Consent struct {
	UserID      string    `json:"user_id"`
	Prompts     bool      `json:"prompts"`
	Outputs     bool      `json:"outputs"`
	Tools       bool      `json:"tools"`
	Screenshots bool      `json:"screenshots"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Allows reports whether the scope is granted. Unknown scopes are denied.
func (c *Consent) Allows(scope ConsentScope) bool {
	if c == nil {
		return false
	}
	switch scope {
	case ScopePrompts:
		return c.Prompts
	case ScopeOutputs:
		return c.Outputs
	case ScopeTools:
		return c.Tools
	case ScopeScreenshots:
		return c.Screenshots
	default:
		return false
	}
}

// ScopeForRole returns the consent scope that gates storing a message of the given role.
// System messages are not gated.
func ScopeForRole(r Role) (ConsentScope, bool) {
	switch r {
	case RoleUser:
		return ScopePrompts, true
	case RoleAssistant:
		return ScopeOutputs, true
	case RoleTool:
		return ScopeTools, true
	default:
		return "", false
	}
}
