package flyer

type CheckRequest struct {
	Key          string `json:"key"`
	UserID       int64  `json:"user_id"`
	LanguageCode string `json:"language_code,omitempty"`
}

type CheckResponse struct {
	Skip    bool   `json:"skip"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
