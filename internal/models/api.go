package models

type AskRequest struct {
	Question string `json:"question" binding:"required"`
	ChatID   string `json:"chat_id"`
	Mode     string `json:"mode"`
}

type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type ModeResponse struct {
	Mode           string `json:"mode"`
	DetectedOnline bool   `json:"detectedOnline"`
	DetectedStatus string `json:"detectedStatus"`
}

type ConnectivityStatusResponse struct {
	Online bool   `json:"online"`
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}

type PreferencesRequest struct {
	ResponseFormat    *string `json:"response_format"`
	UseLists          *bool   `json:"use_lists"`
	UseNumbered       *bool   `json:"use_numbered"`
	UseBullets        *bool   `json:"use_bullets"`
	UseEmojis         *bool   `json:"use_emojis"`
	IncludeConfidence *bool   `json:"include_confidence"`
	PreferredTone     *string `json:"preferred_tone"`
}

type ChatSummary struct {
	ChatID       string `json:"chat_id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
