package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmgpt/internal/cache"
	"pharmgpt/internal/model"
)

type fakeConversationStore struct {
	conversations []model.Conversation
	listCalls     int
}

func (f *fakeConversationStore) Create(c *model.Conversation) error {
	f.conversations = append(f.conversations, *c)
	return nil
}

func (f *fakeConversationStore) ListActiveByUserID(userID string) ([]model.Conversation, error) {
	f.listCalls++
	var out []model.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversationStore) UpdateTitle(conversationID, userID, title string) (bool, error) {
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID && f.conversations[i].UserID == userID && f.conversations[i].IsActive {
			f.conversations[i].Title = title
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConversationStore) SoftDelete(conversationID, userID string) (bool, error) {
	for i := range f.conversations {
		if f.conversations[i].ID == conversationID && f.conversations[i].UserID == userID && f.conversations[i].IsActive {
			f.conversations[i].IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConversationStore) TouchLastMessage(string, time.Time) error { return nil }

type fakeMessageStore struct {
	messages  []model.Message
	listCalls int
}

func (f *fakeMessageStore) Create(m *model.Message) error {
	m.MessageIndex = 0
	for _, existing := range f.messages {
		if existing.ConversationID == m.ConversationID && existing.MessageIndex >= m.MessageIndex {
			m.MessageIndex = existing.MessageIndex + 1
		}
	}
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeMessageStore) ListByConversationID(conversationID, userID string, _ int) ([]model.Message, error) {
	f.listCalls++
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func newTestConversationService() (*ConversationService, *fakeConversationStore, *fakeMessageStore) {
	conversations := &fakeConversationStore{}
	messages := &fakeMessageStore{}
	svc := NewConversationService(conversations, messages, cache.NewMemoryCache(), testLogger())
	return svc, conversations, messages
}

func TestCreateConversationDefaults(t *testing.T) {
	svc, _, _ := newTestConversationService()

	c, err := svc.CreateConversation(context.Background(), "u1", "  ", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if c.Title != defaultConversationTitle {
		t.Fatalf("title = %q, want %q", c.Title, defaultConversationTitle)
	}
	if c.Model != "normal" {
		t.Fatalf("model = %q, want normal", c.Model)
	}
	if c.ID == "" || !c.IsActive {
		t.Fatalf("conversation not initialized: %+v", c)
	}
}

func TestListConversationsReadsThroughCache(t *testing.T) {
	svc, conversations, _ := newTestConversationService()

	if _, err := svc.CreateConversation(context.Background(), "u1", "Warfarin questions", "normal"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		list, err := svc.ListConversations(context.Background(), "u1")
		if err != nil {
			t.Fatalf("ListConversations: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("len = %d, want 1", len(list))
		}
	}
	if conversations.listCalls != 1 {
		t.Fatalf("store queried %d times, want 1 (cache should serve repeats)", conversations.listCalls)
	}
}

func TestCreateConversationEvictsList(t *testing.T) {
	svc, conversations, _ := newTestConversationService()

	if _, err := svc.CreateConversation(context.Background(), "u1", "First", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ListConversations(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateConversation(context.Background(), "u1", "Second", ""); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListConversations(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (stale cache survived creation)", len(list))
	}
	if conversations.listCalls != 2 {
		t.Fatalf("store queried %d times, want 2", conversations.listCalls)
	}
}

func TestAddMessageRejectsForeignConversation(t *testing.T) {
	svc, conversations, messages := newTestConversationService()
	conversations.conversations = []model.Conversation{
		{ID: "c-owner", UserID: "owner", IsActive: true},
	}

	_, err := svc.AddMessage(context.Background(), AddMessageInput{
		UserID:         "intruder",
		ConversationID: "c-owner",
		Role:           model.RoleUser,
		Content:        "hello",
	})
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
	if len(messages.messages) != 0 {
		t.Fatal("denied write must not persist a message")
	}
}

func TestAddMessageRejectsInvalidRole(t *testing.T) {
	svc, conversations, _ := newTestConversationService()
	conversations.conversations = []model.Conversation{{ID: "c1", UserID: "u1", IsActive: true}}

	_, err := svc.AddMessage(context.Background(), AddMessageInput{
		UserID:         "u1",
		ConversationID: "c1",
		Role:           "moderator",
		Content:        "hi",
	})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
}

func TestAddMessageEvictsMessageCache(t *testing.T) {
	svc, conversations, messages := newTestConversationService()
	conversations.conversations = []model.Conversation{{ID: "c1", UserID: "u1", IsActive: true}}

	add := func(content string) {
		t.Helper()
		if _, err := svc.AddMessage(context.Background(), AddMessageInput{
			UserID: "u1", ConversationID: "c1", Role: model.RoleUser, Content: content,
		}); err != nil {
			t.Fatal(err)
		}
	}

	add("first")
	if _, err := svc.ListMessages(context.Background(), "u1", "c1"); err != nil {
		t.Fatal(err)
	}
	add("second")

	list, err := svc.ListMessages(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (stale message cache survived write)", len(list))
	}
	if messages.listCalls != 2 {
		t.Fatalf("store queried %d times, want 2", messages.listCalls)
	}
	if list[0].MessageIndex != 0 || list[1].MessageIndex != 1 {
		t.Fatalf("message indexes = %d, %d", list[0].MessageIndex, list[1].MessageIndex)
	}
}

func TestListMessagesRejectsForeignConversation(t *testing.T) {
	svc, conversations, _ := newTestConversationService()
	conversations.conversations = []model.Conversation{{ID: "c1", UserID: "owner", IsActive: true}}

	if _, err := svc.ListMessages(context.Background(), "intruder", "c1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestRenameConversation(t *testing.T) {
	svc, conversations, _ := newTestConversationService()
	conversations.conversations = []model.Conversation{{ID: "c1", UserID: "u1", IsActive: true, Title: "Old"}}

	if err := svc.RenameConversation(context.Background(), "u1", "c1", "Pharmacokinetics"); err != nil {
		t.Fatalf("RenameConversation: %v", err)
	}
	if conversations.conversations[0].Title != "Pharmacokinetics" {
		t.Fatalf("title = %q", conversations.conversations[0].Title)
	}

	if err := svc.RenameConversation(context.Background(), "u1", "missing", "X"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestDeleteConversationHidesFromList(t *testing.T) {
	svc, conversations, _ := newTestConversationService()
	conversations.conversations = []model.Conversation{{ID: "c1", UserID: "u1", IsActive: true}}

	if err := svc.DeleteConversation(context.Background(), "u1", "c1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}

	list, err := svc.ListConversations(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("len = %d, want 0 after soft delete", len(list))
	}

	owns, err := svc.OwnsConversation(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if owns {
		t.Fatal("deleted conversation should no longer be owned")
	}
}
