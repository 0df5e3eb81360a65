// Package notifier renders dashboard pages and delivers them to Telegram.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"StockLens/internal/logger"
)

const defaultTelegramURL = "https://api.telegram.org"

// maxMessageLen is the Telegram limit for a single message, in characters.
const maxMessageLen = 4096

// Notifier delivers a text message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	Log      *logger.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log *logger.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  defaultTelegramURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Log: log.WithComponent("telegram"),
	}
}

func (t *TelegramNotifier) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.BaseURL, "/"), t.BotToken, name)
}

// Send posts a message to the configured chat. It makes a single attempt.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	text = truncateMessage(text, maxMessageLen)
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// truncateMessage keeps at most limit characters, ending with "...". The cut
// never splits a rune, a tag or an entity, and open tags are closed.
func truncateMessage(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	budget := limit - 3
	for {
		head := cutRunes(text, budget)
		if lt := strings.LastIndexByte(head, '<'); lt > strings.LastIndexByte(head, '>') {
			head = head[:lt]
		}
		if amp := strings.LastIndexByte(head, '&'); amp > strings.LastIndexByte(head, ';') {
			head = head[:amp]
		}
		out := head + "..." + closingTags(head)
		over := utf8.RuneCountInString(out) - limit
		if over <= 0 || budget <= 0 {
			return out
		}
		budget = max(budget-over, 0)
	}
}

// cutRunes returns the first n runes of s.
func cutRunes(s string, n int) string {
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}

// closingTags returns the end tags for elements left open in s.
func closingTags(s string) string {
	var open []string
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			break
		}
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			break
		}
		tag := s[lt+1 : lt+gt]
		s = s[lt+gt+1:]
		if name, ok := strings.CutPrefix(tag, "/"); ok {
			if len(open) > 0 && open[len(open)-1] == strings.TrimSpace(name) {
				open = open[:len(open)-1]
			}
			continue
		}
		if f := strings.Fields(tag); len(f) > 0 {
			open = append(open, f[0])
		}
	}
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}
