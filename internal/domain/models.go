package domain

import (
	"encoding/json"
	"time"
)

// =============================================================================
// Core Configuration
// =============================================================================

type Config struct {
	Broker    BrokerConfig    `json:"broker" yaml:"broker"`
	Retry     RetryConfig     `json:"retry" yaml:"retry"`
	Gateway   GatewayConfig   `json:"gateway" yaml:"gateway"`
	Records   RecordsConfig   `json:"records" yaml:"records"`
	Tokenizer TokenizerConfig `json:"tokenizer" yaml:"tokenizer"`
	Infra     InfraConfig     `json:"infra" yaml:"infra"`
}

// BrokerConfig bounds how a batch of tool calls is executed.
type BrokerConfig struct {
	MaxConcurrency int `json:"maxConcurrency" yaml:"maxConcurrency"` // Parallel calls per batch (0 = default)
	CallTimeoutMs  int `json:"callTimeoutMs" yaml:"callTimeoutMs"`   // Per-call deadline in milliseconds (0 = default 30s)
}

// CallTimeout returns the per-call deadline as a duration.
func (b BrokerConfig) CallTimeout() time.Duration {
	return time.Duration(b.CallTimeoutMs) * time.Millisecond
}

// RetryConfig controls retries of tool callables that fail with transient errors.
type RetryConfig struct {
	MaxRetries     int `json:"maxRetries" yaml:"maxRetries"`         // Maximum retry attempts (0 = no retries)
	InitialBackoff int `json:"initialBackoff" yaml:"initialBackoff"` // Initial backoff in milliseconds
	MaxBackoff     int `json:"maxBackoff" yaml:"maxBackoff"`         // Maximum backoff in milliseconds
	Multiplier     int `json:"multiplier" yaml:"multiplier"`         // Backoff multiplier (e.g. 2 for exponential doubling)
}

type GatewayConfig struct {
	Port      int    `json:"port" yaml:"port"`
	AuthToken string `json:"authToken,omitempty" yaml:"authToken,omitempty"` // When set, requires Authorization: Bearer <authToken>
}

// RecordsConfig points at the call-record database. An empty URL disables recording.
type RecordsConfig struct {
	DatabaseURL string `json:"databaseUrl,omitempty" yaml:"databaseUrl,omitempty"`
}

type TokenizerConfig struct {
	Encoding string `json:"encoding" yaml:"encoding"` // e.g. "cl100k_base", "o200k_base"
}

type InfraConfig struct {
	LogFormat string `json:"logFormat" yaml:"logFormat"` // "json" | "text"
	LogLevel  string `json:"logLevel" yaml:"logLevel"`
}

// =============================================================================
// Tool Calls
// =============================================================================

// ToolDefinition is the form of a registered tool that is shown to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolCallRequest is one invocation the model asked for in a turn.
type ToolCallRequest struct {
	CallID       string          `json:"callId"`
	ToolName     string          `json:"toolName"`
	RawArguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult is the outcome of one ToolCallRequest. Output is always
// valid JSON; for error results it holds an ErrorPayload.
type ToolCallResult struct {
	CallID   string          `json:"callId"`
	ToolName string          `json:"toolName"`
	Output   json.RawMessage `json:"output"`
	IsError  bool            `json:"isError,omitempty"`
}

// ErrorKind classifies why a tool call produced an error result.
type ErrorKind string

const (
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindExecutionFailed  ErrorKind = "execution_failed"
	KindTimeout          ErrorKind = "timeout"
	KindCanceled         ErrorKind = "canceled"
	KindEncodeFailed     ErrorKind = "encode_failed"
)

// ErrorPayload is the JSON body of an error result fed back to the model.
type ErrorPayload struct {
	Error string    `json:"error"`
	Kind  ErrorKind `json:"kind"`
}

// CallRecord is a persisted trace of one tool call.
type CallRecord struct {
	CallID     string          `json:"callId"`
	ToolName   string          `json:"toolName"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Output     json.RawMessage `json:"output"`
	IsError    bool            `json:"isError"`
	StartedAt  time.Time       `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
}

// =============================================================================
// Messaging Protocol
// =============================================================================

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message is the canonical conversation message. RawContent holds JSON; ContentBlocks
// is populated after UnmarshalJSON for polymorphic content (text, tool_use, tool_result).
type Message struct {
	Role MessageRole `json:"role"`

	// Polymorphic content: string or []ContentBlock (stored as raw JSON)
	RawContent json.RawMessage `json:"content"`
	// Parsed blocks (populated after Unmarshal)
	ContentBlocks []ContentBlock `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling for polymorphic content.
// If content is a string, it becomes a single TextBlock; if an array, each element
// is decoded by its "type" field into the appropriate ContentBlock implementation.
func (m *Message) UnmarshalJSON(data []byte) error {
	var a struct {
		Role    MessageRole     `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Role = a.Role
	m.RawContent = a.Content
	m.ContentBlocks = nil

	if len(a.Content) == 0 {
		return nil
	}
	blocks, err := ParseMessageContent(a.Content)
	if err != nil {
		return err
	}
	m.ContentBlocks = blocks
	return nil
}

// ParseMessageContent decodes content (string or array of blocks) into ContentBlocks.
// Blocks of unknown type are skipped.
func ParseMessageContent(content json.RawMessage) ([]ContentBlock, error) {
	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return []ContentBlock{TextBlock{Text: s}}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	blocks := make([]ContentBlock, 0, len(raw))
	for _, r := range raw {
		var typeOnly struct {
			Type BlockType `json:"type"`
		}
		if err := json.Unmarshal(r, &typeOnly); err != nil {
			continue
		}
		switch typeOnly.Type {
		case BlockText:
			var b TextBlock
			if err := json.Unmarshal(r, &b); err == nil {
				blocks = append(blocks, b)
			}
		case BlockToolUse:
			var b ToolUseBlock
			if err := json.Unmarshal(r, &b); err == nil {
				blocks = append(blocks, b)
			}
		case BlockToolResult:
			var b ToolResultBlock
			if err := json.Unmarshal(r, &b); err == nil {
				blocks = append(blocks, b)
			}
		}
	}
	return blocks, nil
}

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

type ContentBlock interface {
	Type() BlockType
}

type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) Type() BlockType { return BlockText }

type ToolUseBlock struct {
	ToolUseID string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

func (ToolUseBlock) Type() BlockType { return BlockToolUse }

type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

func (ToolResultBlock) Type() BlockType { return BlockToolResult }

// MarshalJSON emits the block with its "type" discriminator.
func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockText, alias(b)})
}

// MarshalJSON emits the block with its "type" discriminator.
func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	type alias ToolUseBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockToolUse, alias(b)})
}

// MarshalJSON emits the block with its "type" discriminator.
func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	type alias ToolResultBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{BlockToolResult, alias(b)})
}
