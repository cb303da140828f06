// internal/domain/conversation/entity.go
package conversation

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID             int64          `json:"id" db:"id"`
	ConversationID string         `json:"conversation_id" db:"conversation_id"`
	Role           Role           `json:"role" db:"role"`
	Content        string         `json:"content" db:"content"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time      `json:"timestamp" db:"created_at"`
}

// Thread is a lead's message history, oldest first.
type Thread struct {
	LeadID   int64     `json:"lead_id"`
	Phone    string    `json:"phone"`
	Messages []Message `json:"messages"`
}

const idPrefix = "whatsapp_"

// IDForChat returns the conversation id for a WhatsApp chat id such as
// 5585999999999@c.us.
func IDForChat(chatID string) string {
	return idPrefix + chatID
}

// ChatID is the inverse of IDForChat.
func ChatID(conversationID string) string {
	return strings.TrimPrefix(conversationID, idPrefix)
}

// CandidateIDs lists every conversation id a phone may have been stored under.
func CandidateIDs(phone string) []string {
	return []string{
		IDForChat(phone + "@c.us"),
		IDForChat(phone + "@lid"),
		IDForChat(phone),
		phone,
	}
}
