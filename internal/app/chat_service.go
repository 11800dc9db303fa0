package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"pharmgpt/internal/ai"
	"pharmgpt/internal/model"
)

const historyWindow = 20

// ChatCompleter abstracts the LLM client so tests can stub completions.
type ChatCompleter interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// ContextProvider supplies retrieved document context for a query.
type ContextProvider interface {
	RelevantContext(ctx context.Context, userID, conversationID, query string) (string, error)
}

// MessageManager is the slice of ConversationService the chat flow needs.
type MessageManager interface {
	AddMessage(ctx context.Context, input AddMessageInput) (*model.Message, error)
	ListMessages(ctx context.Context, userID, conversationID string) ([]model.Message, error)
}

type ChatService struct {
	conversations MessageManager
	rag           ContextProvider
	llm           ChatCompleter
	profiles      map[string]ai.ChatConfig
	log           *logrus.Logger
}

func NewChatService(
	conversations MessageManager,
	rag ContextProvider,
	llm ChatCompleter,
	profiles map[string]ai.ChatConfig,
	log *logrus.Logger,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		rag:           rag,
		llm:           llm,
		profiles:      profiles,
		log:           log,
	}
}

type SendMessageInput struct {
	UserID         string
	ConversationID string
	Content        string
	Model          string
}

type SendMessageResult struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
	ContextUsed      bool
}

// preparedTurn carries the state shared by the blocking and streaming
// chat flows once the user turn is persisted and context retrieved.
type preparedTurn struct {
	modelTag    string
	cfg         ai.ChatConfig
	userMessage *model.Message
	prompt      []ai.ChatMessage
	contextUsed bool
}

// prepareTurn validates input, persists the user turn, retrieves document
// context, and builds the model prompt. Retrieval failures degrade to an
// un-augmented prompt instead of failing the whole exchange.
func (s *ChatService) prepareTurn(ctx context.Context, input SendMessageInput) (*preparedTurn, error) {
	content := strings.TrimSpace(input.Content)
	if input.UserID == "" || input.ConversationID == "" || content == "" {
		return nil, ErrInvalidInput
	}

	modelTag := input.Model
	if modelTag == "" {
		modelTag = "normal"
	}
	cfg, ok := s.profiles[modelTag]
	if !ok {
		cfg = s.profiles["normal"]
	}

	userMessage, err := s.conversations.AddMessage(ctx, AddMessageInput{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Role:           model.RoleUser,
		Content:        content,
		Model:          modelTag,
	})
	if err != nil {
		return nil, err
	}

	docContext, err := s.rag.RelevantContext(ctx, input.UserID, input.ConversationID, content)
	if err != nil {
		s.log.WithError(err).Warn("context retrieval failed, answering without documents")
		docContext = ""
	}

	history, err := s.conversations.ListMessages(ctx, input.UserID, input.ConversationID)
	if err != nil {
		return nil, err
	}

	return &preparedTurn{
		modelTag:    modelTag,
		cfg:         cfg,
		userMessage: userMessage,
		prompt:      s.buildPrompt(history, content, docContext),
		contextUsed: docContext != "",
	}, nil
}

func (s *ChatService) recordAssistant(ctx context.Context, input SendMessageInput, turn *preparedTurn, answer string) (*SendMessageResult, error) {
	metadata, _ := json.Marshal(map[string]any{"rag_context_used": turn.contextUsed})
	assistantMessage, err := s.conversations.AddMessage(ctx, AddMessageInput{
		UserID:         input.UserID,
		ConversationID: input.ConversationID,
		Role:           model.RoleAssistant,
		Content:        answer,
		Model:          turn.modelTag,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, err
	}

	return &SendMessageResult{
		UserMessage:      turn.userMessage,
		AssistantMessage: assistantMessage,
		ContextUsed:      turn.contextUsed,
	}, nil
}

// SendMessage persists the user turn, retrieves document context, asks
// the model, and persists the assistant turn.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	turn, err := s.prepareTurn(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.Complete(ctx, turn.cfg, turn.prompt)
	if err != nil {
		return nil, err
	}
	return s.recordAssistant(ctx, input, turn, answer)
}

// StreamMessage is SendMessage with the model reply delivered incrementally
// through onDelta. The full reply is persisted as the assistant turn once
// streaming finishes; an onDelta error aborts the stream without persisting.
func (s *ChatService) StreamMessage(ctx context.Context, input SendMessageInput, onDelta func(chunk string) error) (*SendMessageResult, error) {
	turn, err := s.prepareTurn(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.StreamComplete(ctx, turn.cfg, turn.prompt, onDelta)
	if err != nil {
		return nil, err
	}
	return s.recordAssistant(ctx, input, turn, answer)
}

// buildPrompt assembles system prompt, recent history, and the final
// user turn. When document context exists the final turn carries the
// augmented template instead of the raw question.
func (s *ChatService) buildPrompt(history []model.Message, question, docContext string) []ai.ChatMessage {
	messages := []ai.ChatMessage{{Role: model.RoleSystem, Content: PharmacologySystemPrompt}}

	// The just-persisted user turn is the last history entry.
	if len(history) > 0 {
		history = history[:len(history)-1]
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		if m.Role == model.RoleSystem {
			continue
		}
		messages = append(messages, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	final := question
	if docContext != "" {
		final = RAGEnhancedPrompt(question, docContext)
	}
	return append(messages, ai.ChatMessage{Role: model.RoleUser, Content: final})
}
