package types

// Role 定义消息角色
type Role string

const (
	// RoleUser 用户角色
	RoleUser Role = "user"

	// RoleAssistant AI助手角色
	RoleAssistant Role = "assistant"

	// RoleSystem 系统角色
	RoleSystem Role = "system"
)

// Message 表示一条消息。评测裁判只使用纯文本对话。
type Message struct {
	// Role 消息角色
	Role Role `json:"role"`

	// Content 消息内容
	Content string `json:"content"`
}
