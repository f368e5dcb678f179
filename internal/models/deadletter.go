package models

import "time"

// Stage identifies where in the reply pipeline a job died.
type Stage string

const (
	StageQueue      Stage = "queue"
	StageCompletion Stage = "completion"
	StageSynthesis  Stage = "synthesis"
	StageSend       Stage = "send"
)

// DeadLetter records a reply job that was dropped or failed, so it can be
// inspected and replayed. Failures in the pipeline are invisible to the
// webhook sender; this record is the only durable trace they leave.
type DeadLetter struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Stage     Stage     `json:"stage"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *DeadLetter) Message() InboundMessage {
	return InboundMessage{ChatID: d.ChatID, UserID: d.UserID, Text: d.Text}
}
