package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/docvault/docvault/internal/models"
)

// checkIMAP processes every non-deleted message in the configured
// mailbox. Messages are flagged deleted and expunged only after their
// attachments were handed off; a mid-tick failure leaves the remaining
// messages for the next tick.
func (s *Service) checkIMAP(ctx context.Context, source *models.Source) error {
	addr := fmt.Sprintf("%s:%d", source.Host, source.Port)

	var (
		conn *client.Client
		err  error
	)
	if source.SSL {
		conn, err = client.DialTLS(addr, nil)
	} else {
		conn, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("connect imap %s: %w", addr, err)
	}
	defer conn.Logout()

	if source.TimeoutSeconds > 0 {
		conn.Timeout = time.Duration(source.TimeoutSeconds) * time.Second
	}

	if err := conn.Login(source.Username, source.Password); err != nil {
		return fmt.Errorf("authenticate imap: %w", err)
	}

	mailbox := source.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := conn.Select(mailbox, false); err != nil {
		return fmt.Errorf("select mailbox %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.DeletedFlag}
	ids, err := conn.Search(criteria)
	if err != nil {
		return fmt.Errorf("search imap messages: %w", err)
	}
	slog.Debug("imap mailbox checked", "source", source.Label, "messages", len(ids))
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var processed []uint32
	var processErr error
	for msg := range messages {
		if processErr != nil {
			continue // drain the channel
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		if err := s.processMessage(ctx, source, body); err != nil {
			processErr = fmt.Errorf("process imap message %d: %w", msg.SeqNum, err)
			continue
		}
		processed = append(processed, msg.SeqNum)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("fetch imap messages: %w", err)
	}

	if len(processed) > 0 {
		delset := new(imap.SeqSet)
		delset.AddNum(processed...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.DeletedFlag}
		if err := conn.Store(delset, item, flags, nil); err != nil {
			return fmt.Errorf("flag imap messages deleted: %w", err)
		}
		if err := conn.Expunge(nil); err != nil {
			return fmt.Errorf("expunge imap mailbox: %w", err)
		}
	}
	return processErr
}
