package models

// GORM models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a registered or guest account
type User struct {
	BaseModel
	Username     string `json:"username" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	IsGuest      bool   `json:"is_guest" gorm:"default:false"`

	// Associations
	Preferences *UserPreferences `json:"preferences,omitempty" gorm:"foreignKey:UserID"`
	Chats       []Chat           `json:"chats,omitempty" gorm:"foreignKey:UserID"`
}

// UserPreferences stores per-user response formatting settings
type UserPreferences struct {
	BaseModel
	UserID            uint   `json:"user_id" gorm:"unique;not null"`
	ResponseFormat    string `json:"response_format" gorm:"default:'formatted';check:response_format IN ('formatted','plain')"`
	UseLists          bool   `json:"use_lists" gorm:"default:true"`
	UseNumbered       bool   `json:"use_numbered" gorm:"default:true"`
	UseBullets        bool   `json:"use_bullets" gorm:"default:true"`
	UseEmojis         bool   `json:"use_emojis" gorm:"default:true"`
	IncludeConfidence bool   `json:"include_confidence" gorm:"default:true"`
	PreferredTone     string `json:"preferred_tone" gorm:"default:'professional';check:preferred_tone IN ('professional','casual','technical')"`
}

// Chat groups the messages of one conversation
type Chat struct {
	BaseModel
	ChatID string `json:"chat_id" gorm:"unique;not null"`
	UserID *uint  `json:"user_id"`
	Title  string `json:"title"`

	// Associations
	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ChatRef;references:ChatID"`
}

// Message is one turn in a chat, either the user's query or the answer
type Message struct {
	BaseModel
	ChatRef     string `json:"chat_id" gorm:"column:chat_ref;not null;index"`
	Role        string `json:"role" gorm:"not null;check:role IN ('user','assistant')"`
	Content     string `json:"content" gorm:"not null"`
	Category    string `json:"category"`
	BackendUsed string `json:"backend_used"`
	Confidence  string `json:"confidence"`
	Verified    bool   `json:"verified" gorm:"default:false"`
}

// Database interfaces for repository pattern
type UserRepository interface {
	Create(user *User) error
	GetByID(id uint) (*User, error)
	GetByUsername(username string) (*User, error)
}

type PreferencesRepository interface {
	GetByUserID(userID uint) (*UserPreferences, error)
	Upsert(prefs *UserPreferences) error
}

type ChatRepository interface {
	Create(chat *Chat) error
	GetByChatID(chatID string) (*Chat, error)
	ListForUser(userID uint, limit int) ([]Chat, error)
	Delete(chatID string) error
}

type MessageRepository interface {
	Create(message *Message) error
	History(chatID string, limit int) ([]Message, error)
	CountForChat(chatID string) (int64, error)
}

// TableName methods for custom table names
func (User) TableName() string            { return "users" }
func (UserPreferences) TableName() string { return "user_preferences" }
func (Chat) TableName() string            { return "chats" }
func (Message) TableName() string         { return "messages" }

// Model validation methods
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if !u.IsGuest && u.PasswordHash == "" {
		return fmt.Errorf("password hash is required for registered users")
	}
	return nil
}

func (m *Message) Validate() error {
	if m.ChatRef == "" {
		return fmt.Errorf("chat id is required")
	}
	if m.Role != "user" && m.Role != "assistant" {
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("message content is required")
	}
	return nil
}

func (p *UserPreferences) Validate() error {
	validTones := map[string]bool{
		"professional": true,
		"casual":       true,
		"technical":    true,
	}
	if p.PreferredTone != "" && !validTones[p.PreferredTone] {
		return fmt.Errorf("invalid tone: %s", p.PreferredTone)
	}
	if p.ResponseFormat != "" && p.ResponseFormat != "formatted" && p.ResponseFormat != "plain" {
		return fmt.Errorf("invalid response format: %s", p.ResponseFormat)
	}
	return nil
}

// GORM hooks
func (u *User) BeforeCreate(tx *gorm.DB) error {
	return u.Validate()
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	return m.Validate()
}

func (p *UserPreferences) BeforeCreate(tx *gorm.DB) error {
	return p.Validate()
}

func (p *UserPreferences) BeforeUpdate(tx *gorm.DB) error {
	return p.Validate()
}
