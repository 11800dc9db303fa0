package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"pharmgpt/internal/cache"
	"pharmgpt/internal/model"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidRole          = errors.New("invalid message role")
)

const (
	defaultConversationTitle = "New Conversation"
	messageListLimit         = 500
)

// ConversationStore is the subset of the conversation repository the
// service depends on.
type ConversationStore interface {
	Create(conversation *model.Conversation) error
	ListActiveByUserID(userID string) ([]model.Conversation, error)
	UpdateTitle(conversationID, userID, title string) (bool, error)
	SoftDelete(conversationID, userID string) (bool, error)
	TouchLastMessage(conversationID string, at time.Time) error
}

type MessageStore interface {
	Create(message *model.Message) error
	ListByConversationID(conversationID, userID string, limit int) ([]model.Message, error)
}

type ConversationService struct {
	conversations ConversationStore
	messages      MessageStore
	cache         cache.Cache
	log           *logrus.Logger
}

func NewConversationService(
	conversations ConversationStore,
	messages MessageStore,
	c cache.Cache,
	log *logrus.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		cache:         c,
		log:           log,
	}
}

func (s *ConversationService) CreateConversation(ctx context.Context, userID, title, modelTag string) (*model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}
	if modelTag == "" {
		modelTag = "normal"
	}

	conversation := &model.Conversation{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		Model:    modelTag,
		IsActive: true,
	}
	if err := s.conversations.Create(conversation); err != nil {
		return nil, err
	}

	s.evict(ctx, cache.ConversationsKey(userID))
	return conversation, nil
}

func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	key := cache.ConversationsKey(userID)
	var cached []model.Conversation
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.WithError(err).Warn("conversation cache read failed")
	}
	if hit {
		return cached, nil
	}

	conversations, err := s.conversations.ListActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, conversations, cache.DefaultTTL); err != nil {
		s.log.WithError(err).Warn("conversation cache write failed")
	}
	return conversations, nil
}

// OwnsConversation reports whether the conversation belongs to the user's
// active conversation list. It reads through the same cache as
// ListConversations, so a hot list answers ownership without a query.
func (s *ConversationService) OwnsConversation(ctx context.Context, userID, conversationID string) (bool, error) {
	if userID == "" || conversationID == "" {
		return false, nil
	}
	conversations, err := s.ListConversations(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range conversations {
		if conversations[i].ID == conversationID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ConversationService) RenameConversation(ctx context.Context, userID, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if userID == "" || conversationID == "" || title == "" {
		return ErrInvalidInput
	}

	updated, err := s.conversations.UpdateTitle(conversationID, userID, title)
	if err != nil {
		return err
	}
	if !updated {
		return ErrConversationNotFound
	}

	s.evict(ctx, cache.ConversationsKey(userID))
	return nil
}

func (s *ConversationService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if userID == "" || conversationID == "" {
		return ErrInvalidInput
	}

	deleted, err := s.conversations.SoftDelete(conversationID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConversationNotFound
	}

	s.evict(ctx,
		cache.ConversationsKey(userID),
		cache.MessagesKey(userID, conversationID),
	)
	return nil
}

type AddMessageInput struct {
	UserID         string
	ConversationID string
	Role           string
	Content        string
	Model          string
	Metadata       []byte
}

func (s *ConversationService) AddMessage(ctx context.Context, input AddMessageInput) (*model.Message, error) {
	if input.UserID == "" || input.ConversationID == "" || strings.TrimSpace(input.Content) == "" {
		return nil, ErrInvalidInput
	}
	switch input.Role {
	case model.RoleUser, model.RoleAssistant, model.RoleSystem:
	default:
		return nil, ErrInvalidRole
	}

	owns, err := s.OwnsConversation(ctx, input.UserID, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrConversationNotFound
	}

	message := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Role:           input.Role,
		Content:        input.Content,
		Model:          input.Model,
		Metadata:       datatypes.JSON(input.Metadata),
	}
	if err := s.messages.Create(message); err != nil {
		return nil, err
	}

	if err := s.conversations.TouchLastMessage(input.ConversationID, message.CreatedAt); err != nil {
		s.log.WithError(err).Warn("touch conversation last_message_at failed")
	}

	s.evict(ctx,
		cache.MessagesKey(input.UserID, input.ConversationID),
		cache.ConversationsKey(input.UserID),
	)
	return message, nil
}

func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if userID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}

	owns, err := s.OwnsConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, ErrConversationNotFound
	}

	key := cache.MessagesKey(userID, conversationID)
	var cached []model.Message
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.log.WithError(err).Warn("message cache read failed")
	}
	if hit {
		return cached, nil
	}

	messages, err := s.messages.ListByConversationID(conversationID, userID, messageListLimit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, messages, cache.DefaultTTL); err != nil {
		s.log.WithError(err).Warn("message cache write failed")
	}
	return messages, nil
}

func (s *ConversationService) evict(ctx context.Context, keys ...string) {
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.WithError(err).Warn("cache eviction failed")
	}
}
