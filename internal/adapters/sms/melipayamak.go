package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"techcafe/internal/domain"
)

// DefaultMelipayamakURL is the REST endpoint for template (base number) messages.
const DefaultMelipayamakURL = "https://rest.payamak-panel.com/api/SendSMS/BaseServiceNumber"

// minRecIDLength is the shortest Value the panel returns for an accepted message.
// Shorter values are numeric error codes.
const minRecIDLength = 15

type melipayamakResponse struct {
	Value        string `json:"Value"`
	RetStatus    int    `json:"RetStatus"`
	StrRetStatus string `json:"StrRetStatus"`
}

type melipayamakSender struct {
	client   *http.Client
	endpoint string
	username string
	password string
	logger   *slog.Logger
}

// NewMelipayamakSender returns an SMSSender that calls the Melipayamak REST panel.
func NewMelipayamakSender(client *http.Client, endpoint, username, password string, logger *slog.Logger) domain.SMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultMelipayamakURL
	}
	return &melipayamakSender{
		client:   client,
		endpoint: endpoint,
		username: username,
		password: password,
		logger:   logger,
	}
}

func (s *melipayamakSender) Send(ctx context.Context, phone string, templateID int, args []string) error {
	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", s.password)
	form.Set("to", phone)
	form.Set("bodyId", strconv.Itoa(templateID))
	form.Set("text", strings.Join(args, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms panel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms panel returned status: %d", resp.StatusCode)
	}

	var data melipayamakResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode sms panel response: %w", err)
	}
	if len(data.Value) < minRecIDLength {
		return fmt.Errorf("sms panel rejected message: value=%s status=%s", data.Value, data.StrRetStatus)
	}
	s.logger.InfoContext(ctx, "sms sent", "template_id", templateID, "rec_id", data.Value)
	return nil
}
