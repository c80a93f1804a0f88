package telegram

import "strings"

// Update is a Bot API webhook update. Exactly one of the pointer fields is
// set per update; everything else Telegram may send is ignored.
type Update struct {
	UpdateID    int64        `json:"update_id"`
	ChannelPost *ChannelPost `json:"channel_post"`
	Message     *Message     `json:"message"`
}

// Chat identifies a Telegram chat or channel
type Chat struct {
	ID int64 `json:"id"`
}

// Attachment is a file attached to a post (video or document)
type Attachment struct {
	FileName string `json:"file_name"`
}

// ChannelPost is a message posted to a channel the bot watches
type ChannelPost struct {
	MessageID int64       `json:"message_id"`
	Chat      Chat        `json:"chat"`
	Video     *Attachment `json:"video"`
	Document  *Attachment `json:"document"`
}

// FileName returns the attached file's name, or empty when the post
// carries no named file
func (p *ChannelPost) FileName() string {
	if p.Video != nil && p.Video.FileName != "" {
		return p.Video.FileName
	}
	if p.Document != nil && p.Document.FileName != "" {
		return p.Document.FileName
	}
	return ""
}

// Message is a direct message sent to the bot
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// StartPayload returns the deep-link payload of a /start command and
// whether the message is one. "/start 12_720p" yields "12_720p"; a bare
// "/start" yields an empty payload.
func (m *Message) StartPayload() (string, bool) {
	if !strings.HasPrefix(m.Text, "/start") {
		return "", false
	}
	parts := strings.Fields(m.Text)
	if len(parts) < 2 {
		return "", true
	}
	return parts[1], true
}
