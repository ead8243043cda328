package subgram

const (
	ActionSubscribe = "subscribe"
	DefaultMaxOP    = 5

	// StatusOK means no sponsor actions are pending.
	StatusOK = "ok"
	// StatusWarning means the user must complete the returned Links first.
	StatusWarning = "warning"
)

type OpRequest struct {
	UserID       int64  `json:"UserID"`
	ChatID       int64  `json:"ChatID"`
	FirstName    string `json:"first_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Action       string `json:"action"`
	MaxOP        int    `json:"MaxOP"`
}

type SponsorLink struct {
	Link         string `json:"link"`
	ResourceName string `json:"resource_name"`
}

type OpResponse struct {
	Status  string        `json:"status"`
	Code    int           `json:"code"`
	Message string        `json:"message,omitempty"`
	Links   []SponsorLink `json:"links,omitempty"`
}
