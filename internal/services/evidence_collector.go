package services

import (
	"context"
	"fmt"
	"strings"

	"investment-bot/internal/models"
	"investment-bot/internal/notify"

	"go.uber.org/zap"
)

const (
	evidenceDisplayLimit = 100
	evidenceDisplayHead  = 50
	evidenceDisplayTail  = 30
)

// Authorizer answers whether a user may run admin operations
type Authorizer interface {
	IsAdministrator(userID int64) bool
}

// AdminDirectory is an Authorizer that can also list the administrators
type AdminDirectory interface {
	Authorizer
	Administrators() []int64
}

// EvidenceInput is one raw payment proof message from the user. Exactly
// one of Skip, Text, PhotoFileID or DocumentFileID is expected.
type EvidenceInput struct {
	Skip           bool
	Text           string
	PhotoFileID    string
	DocumentFileID string
	ChatID         int64
	MessageID      int64
}

// Evidence is the normalized proof stored on the investment
type Evidence struct {
	Content string
	Kind    models.EvidenceKind
}

// Display shortens long file references for admin messages
func (e Evidence) Display() string {
	if e.Kind != models.EvidenceText && len(e.Content) > evidenceDisplayLimit {
		return e.Content[:evidenceDisplayHead] + "..." + e.Content[len(e.Content)-evidenceDisplayTail:]
	}
	return e.Content
}

type EvidenceCollector struct {
	admins   AdminDirectory
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewEvidenceCollector(admins AdminDirectory, notifier notify.Notifier, logger *zap.Logger) *EvidenceCollector {
	return &EvidenceCollector{
		admins:   admins,
		notifier: notifier,
		logger:   logger.Named("evidence"),
	}
}

// Collect normalizes in. Photos and documents are forwarded to every
// administrator in the background.
func (c *EvidenceCollector) Collect(ctx context.Context, userID int64, in EvidenceInput) (Evidence, error) {
	var evidence Evidence
	switch {
	case in.Skip:
		evidence = Evidence{Content: string(models.EvidenceNone), Kind: models.EvidenceNone}
	case in.PhotoFileID != "":
		evidence = Evidence{Content: fmt.Sprintf("photo - file ID: %s", in.PhotoFileID), Kind: models.EvidencePhoto}
	case in.DocumentFileID != "":
		evidence = Evidence{Content: fmt.Sprintf("document - file ID: %s", in.DocumentFileID), Kind: models.EvidenceDocument}
	default:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return Evidence{}, &ValidationError{Field: "evidence", Reason: "send a transaction hash, a photo, a document or skip"}
		}
		return Evidence{Content: text, Kind: models.EvidenceText}, nil
	}

	if evidence.Kind == models.EvidencePhoto || evidence.Kind == models.EvidenceDocument {
		c.forward(ctx, userID, evidence, in)
	}
	return evidence, nil
}

func (c *EvidenceCollector) forward(ctx context.Context, userID int64, evidence Evidence, in EvidenceInput) {
	admins := c.admins.Administrators()
	if len(admins) == 0 {
		c.logger.Warn("no administrators configured, evidence not forwarded", zap.Int64("user_id", userID))
		return
	}
	for _, adminID := range admins {
		c.notifier.Notify(ctx, adminID, notify.Payload{
			Kind:             notify.KindEvidenceForward,
			UserID:           userID,
			EvidenceKind:     string(evidence.Kind),
			EvidenceDisplay:  evidence.Display(),
			ForwardChatID:    in.ChatID,
			ForwardMessageID: in.MessageID,
		})
	}
}
