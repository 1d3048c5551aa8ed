package bridge

import (
	"strings"

	"github.com/tinyland-inc/topicbridge/pkg/bus"
)

// Content is what a Telegram message carries, reduced to the one thing the
// bridge forwards for it.
type Content interface {
	kind() string
}

type TextContent struct {
	Text string
}

type VoiceContent struct {
	Attachment AttachmentRef
}

// PhotoContent holds the highest-fidelity rendition of a photo.
type PhotoContent struct {
	Best    AttachmentRef
	Caption string
}

type DocumentContent struct {
	Attachment AttachmentRef
	Caption    string
}

type EmptyContent struct{}

func (TextContent) kind() string     { return "text" }
func (VoiceContent) kind() string    { return "voice" }
func (PhotoContent) kind() string    { return "photo" }
func (DocumentContent) kind() string { return "document" }
func (EmptyContent) kind() string    { return "empty" }

// ClassifyContent picks the variant to forward. Text wins, then voice,
// then photo, then any document or other file.
func ClassifyContent(msg InboundMessage) Content {
	if strings.TrimSpace(msg.Text) != "" {
		return TextContent{Text: msg.Text}
	}

	var voice, photo, doc, generic *AttachmentRef
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		switch a.Kind {
		case bus.KindVoice:
			if voice == nil {
				voice = a
			}
		case bus.KindPhoto:
			// Renditions arrive smallest first; prefer the largest known
			// size and the later entry on ties.
			if photo == nil || a.Size >= photo.Size {
				photo = a
			}
		case bus.KindDocument:
			if doc == nil {
				doc = a
			}
		default:
			if generic == nil {
				generic = a
			}
		}
	}

	switch {
	case voice != nil:
		return VoiceContent{Attachment: *voice}
	case photo != nil:
		return PhotoContent{Best: *photo, Caption: msg.Caption}
	case doc != nil:
		return DocumentContent{Attachment: *doc, Caption: msg.Caption}
	case generic != nil:
		return DocumentContent{Attachment: *generic, Caption: msg.Caption}
	}
	return EmptyContent{}
}
