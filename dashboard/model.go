// Package dashboard drives a learner's dashboard: the login flow, fetching the
// profile through a Transport, and shaping it into a View for a Renderer.
package dashboard

// ProfileData is the data object of the profile query.
type ProfileData struct {
	User []UserProfile `json:"user"`
}

type UserProfile struct {
	ID               int64          `json:"id"`
	Login            string         `json:"login"`
	Email            string         `json:"email"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	AuditRatio       float64        `json:"auditRatio"`
	Progresses       []Progress     `json:"progresses"`
	ProgressesByPath []PathProgress `json:"progressesByPath"`
	Transactions     []Transaction  `json:"transactions"`
	Xps              []XpEvent      `json:"xps"`
	Audits           []Audit        `json:"audits"`
}

// XpEvent is an XP gain; Amount is in bytes.
type XpEvent struct {
	Amount int64     `json:"amount"`
	Path   string    `json:"path"`
	Event  *XpSource `json:"event,omitempty"`
}

type XpSource struct {
	CreatedAt string `json:"createdAt"`
}

type Transaction struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount"`
}

type Audit struct {
	ID        int64       `json:"id"`
	AuditedAt *string     `json:"auditedAt"`
	Grade     *float64    `json:"grade"`
	Group     *AuditGroup `json:"group"`
}

// Passed reports grade >= 1. A missing grade is a fail.
func (a Audit) Passed() bool {
	return a.Grade != nil && *a.Grade >= 1
}

type AuditGroup struct {
	CaptainLogin string        `json:"captainLogin"`
	Members      []GroupMember `json:"members"`
}

type GroupMember struct {
	UserLogin string `json:"userLogin"`
}

type Progress struct {
	CreatedAt string           `json:"createdAt"`
	Path      string           `json:"path"`
	Results   []ProgressResult `json:"results"`
}

type ProgressResult struct {
	ID    int64    `json:"id"`
	Grade *float64 `json:"grade"`
}

type PathProgress struct {
	Count     int    `json:"count"`
	CreatedAt string `json:"createdAt"`
	Path      string `json:"path"`
	Succeeded bool   `json:"succeeded"`
}
