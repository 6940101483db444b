package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is a single entry of the display log. Only the last bot message is
// ever mutated, and only while it is not Final.
type Message struct {
	Role  Role   `json:"role"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// TypingState describes an in-progress reveal of a bot reply. Revealed counts
// runes, not bytes.
type TypingState struct {
	FullText   string
	Revealed   int
	Generation uint64
}
