package models

// InboundMessage is the normalized form of a fan message extracted from a
// webhook payload. ChatID and Text must both be non-empty for the message to
// be processed; UserID falls back to "unknown" when the payload omits it.
type InboundMessage struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (m InboundMessage) Valid() bool {
	return m.ChatID != "" && m.Text != ""
}
