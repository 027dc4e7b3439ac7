package types

// Role is the author of a chat message.
type Role string

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports tokens consumed by a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a chat completion result.
type Response struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Model        string      `json:"model,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// ContextKey is the type for request-scoped values carried on a context.
type ContextKey string

const (
	ContextKeyUserID          ContextKey = "user_id"
	ContextKeySessionID       ContextKey = "session_id"
	ContextKeyRequestSource   ContextKey = "request_source"
	ContextKeyIngestionSource ContextKey = "ingestion_source"
	ContextKeySystemCall      ContextKey = "system_call"
)
