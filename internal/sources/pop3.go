package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/knadh/go-pop3"

	"github.com/docvault/docvault/internal/models"
)

// checkPOP3 drains the mailbox: every message is processed for
// attachments and deleted only after processing succeeded. Deletes are
// committed by Quit at the end of the session.
func (s *Service) checkPOP3(ctx context.Context, source *models.Source) error {
	client := pop3.New(pop3.Opt{
		Host:        source.Host,
		Port:        source.Port,
		TLSEnabled:  source.SSL,
		DialTimeout: time.Duration(source.TimeoutSeconds) * time.Second,
	})

	conn, err := client.NewConn()
	if err != nil {
		return fmt.Errorf("connect pop3 %s: %w", source.Host, err)
	}
	defer conn.Quit()

	if err := conn.Auth(source.Username, source.Password); err != nil {
		return fmt.Errorf("authenticate pop3: %w", err)
	}

	messages, err := conn.List(0)
	if err != nil {
		return fmt.Errorf("list pop3 messages: %w", err)
	}
	slog.Debug("pop3 mailbox checked", "source", source.Label, "messages", len(messages))

	for _, msg := range messages {
		raw, err := conn.RetrRaw(msg.ID)
		if err != nil {
			return fmt.Errorf("retrieve pop3 message %d: %w", msg.ID, err)
		}

		if err := s.processMessage(ctx, source, raw); err != nil {
			return fmt.Errorf("process pop3 message %d: %w", msg.ID, err)
		}

		// Consume only after the attachments were handed off.
		if err := conn.Dele(msg.ID); err != nil {
			return fmt.Errorf("delete pop3 message %d: %w", msg.ID, err)
		}
	}
	return nil
}
