package repository

import (
	"github.com/codewiz073-droid/bwami/internal/models"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) models.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepositoryImpl) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Preferences").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PreferencesRepositoryImpl implements PreferencesRepository
type PreferencesRepositoryImpl struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) models.PreferencesRepository {
	return &PreferencesRepositoryImpl{db: db}
}

func (r *PreferencesRepositoryImpl) GetByUserID(userID uint) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := r.db.Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *PreferencesRepositoryImpl) Upsert(prefs *models.UserPreferences) error {
	var existing models.UserPreferences
	err := r.db.Where("user_id = ?", prefs.UserID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(prefs).Error
	}
	if err != nil {
		return err
	}
	prefs.ID = existing.ID
	return r.db.Save(prefs).Error
}

// ChatRepositoryImpl implements ChatRepository
type ChatRepositoryImpl struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) models.ChatRepository {
	return &ChatRepositoryImpl{db: db}
}

func (r *ChatRepositoryImpl) Create(chat *models.Chat) error {
	return r.db.Create(chat).Error
}

func (r *ChatRepositoryImpl) GetByChatID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.Where("chat_id = ?", chatID).First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepositoryImpl) ListForUser(userID uint, limit int) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&chats).Error
	return chats, err
}

func (r *ChatRepositoryImpl) Delete(chatID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_ref = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("chat_id = ?", chatID).Delete(&models.Chat{}).Error
	})
}

// MessageRepositoryImpl implements MessageRepository
type MessageRepositoryImpl struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) models.MessageRepository {
	return &MessageRepositoryImpl{db: db}
}

func (r *MessageRepositoryImpl) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepositoryImpl) History(chatID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_ref = ?", chatID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepositoryImpl) CountForChat(chatID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("chat_ref = ?", chatID).
		Count(&count).Error
	return count, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Users       models.UserRepository
	Preferences models.PreferencesRepository
	Chats       models.ChatRepository
	Messages    models.MessageRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Users:       NewUserRepository(db),
		Preferences: NewPreferencesRepository(db),
		Chats:       NewChatRepository(db),
		Messages:    NewMessageRepository(db),
	}
}
