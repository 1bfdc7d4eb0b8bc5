package handler

import (
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of the bot client the handlers send through.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var urlRe = regexp.MustCompile(`https?://\S+`)

// extractURL returns the first URL in the text, or "".
func extractURL(text string) string {
	return urlRe.FindString(text)
}

// splitURLAndName handles the "URL | name.ext" shorthand that picks the file
// name upfront and skips the rename prompt.
func splitURLAndName(text string) (url, name string) {
	url = extractURL(text)
	if url == "" {
		return "", ""
	}
	if cut := strings.Index(url, "|"); cut >= 0 {
		url = strings.TrimSpace(url[:cut])
	}
	if idx := strings.Index(text, "|"); idx >= 0 {
		name = strings.TrimSpace(text[idx+1:])
	}
	return url, name
}

func getUserName(firstName, userName string) string {
	if firstName != "" {
		return firstName
	}
	return userName
}
