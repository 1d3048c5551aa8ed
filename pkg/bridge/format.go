package bridge

import "fmt"

// telegramLabel is the author line for Telegram messages shown on Discord:
// the full name, plus the @handle when the user has one.
func telegramLabel(a Author) string {
	name := a.DisplayName
	if name == "" {
		name = a.Handle
	}
	if name == "" {
		name = "Unknown"
	}
	if a.Handle != "" {
		return fmt.Sprintf("%s (@%s)", name, a.Handle)
	}
	return name
}

func discordName(a Author) string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.Handle != "":
		return a.Handle
	default:
		return "Unknown"
	}
}

func telegramTextMessage(label, text string) string {
	return fmt.Sprintf("**%s** From Telegram: \n  %s", label, text)
}

func telegramVoiceCaption(label string) string {
	return fmt.Sprintf("**%s** sent a voice message.", label)
}

func telegramMediaCaption(label, caption string) string {
	s := fmt.Sprintf("**%s** From Telegram sent a media:", label)
	if caption != "" {
		s += "\n" + caption
	}
	return s
}

func telegramAttachmentFallback(label string) string {
	return fmt.Sprintf("**%s** tried to send a file, but it was too large or inaccessible.", label)
}

func discordTextMessage(name, text string) string {
	return fmt.Sprintf("%s From Discord: \n %s", name, text)
}

func discordAttachmentCaption(name string) string {
	return fmt.Sprintf("**%s** sent this from Discord", name)
}

func discordAttachmentFallback(name string) string {
	return fmt.Sprintf("**%s** tried to send a file from Discord, but it was too large or inaccessible.", name)
}
