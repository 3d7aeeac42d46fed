package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Action is the kind of input a user sent
type Action int

const (
	ActionText Action = iota
	ActionAccept
	ActionCancel
	ActionAgree
	ActionDisagree
	ActionProceed
	ActionSkipEvidence
	ActionPhoto
	ActionDocument
)

// Input is one inbound user message, already classified by the transport
type Input struct {
	Action    Action
	Text      string
	FileID    string
	ChatID    int64
	MessageID int64
}

// PromptKind tells the transport what to show next
type PromptKind string

const (
	PromptEnterAmount       PromptKind = "enter_amount"
	PromptInvalidAmount     PromptKind = "invalid_amount"
	PromptConfirmQuote      PromptKind = "confirm_quote"
	PromptTerms             PromptKind = "terms"
	PromptPayment           PromptKind = "payment"
	PromptEvidence          PromptKind = "evidence"
	PromptInvalidEvidence   PromptKind = "invalid_evidence"
	PromptSubmitted         PromptKind = "submitted"
	PromptCancelled         PromptKind = "cancelled"
	PromptUnexpected        PromptKind = "unexpected_input"
	PromptNeedsRegistration PromptKind = "needs_registration"
	PromptNoSession         PromptKind = "no_session"
	PromptFailure           PromptKind = "failure"
)

// Prompt is the engine's reply to an input
type Prompt struct {
	Kind           PromptKind
	Step           Step
	Quote          *services.Quote
	Minimum        decimal.Decimal
	PaymentAddress string
	Investment     *models.Investment
	Reason         string
}

// Submitter persists a finished submission
type Submitter interface {
	Submit(ctx context.Context, userID int64, quote services.Quote, evidence services.Evidence) (*models.Investment, error)
}

// Collector normalizes payment proof
type Collector interface {
	Collect(ctx context.Context, userID int64, in services.EvidenceInput) (services.Evidence, error)
}

// UserLookup loads users to check they may invest
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
}

// Config holds the values shown verbatim to investors
type Config struct {
	MinAmount      decimal.Decimal
	PaymentAddress string
}

const lockStripes = 64

// Engine drives the investment submission state machine. Inputs for the
// same user are handled one at a time; different users never contend on
// anything but the store.
type Engine struct {
	store     Store
	users     UserLookup
	evidence  Collector
	submitter Submitter
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	locks     [lockStripes]sync.Mutex
}

func NewEngine(store Store, users UserLookup, evidence Collector, submitter Submitter, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		store:     store,
		users:     users,
		evidence:  evidence,
		submitter: submitter,
		cfg:       cfg,
		logger:    logger.Named("workflow"),
		now:       time.Now,
	}
}

func (e *Engine) lock(userID int64) func() {
	idx := userID % lockStripes
	if idx < 0 {
		idx = -idx
	}
	m := &e.locks[idx]
	m.Lock()
	return m.Unlock
}

func (e *Engine) load(ctx context.Context, userID int64) (*Session, error) {
	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Session{ID: uuid.NewString(), UserID: userID}
	}
	return s, nil
}

func (e *Engine) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = e.now()
	return e.store.Save(ctx, s)
}

// end leaves the investment flow. Nothing is written outside the store.
func (e *Engine) end(ctx context.Context, s *Session) error {
	if s.PendingReferrerID == nil {
		return e.store.Delete(ctx, s.UserID)
	}
	s.Step = StepIdle
	s.Quote = nil
	s.TermsAccepted = false
	return e.save(ctx, s)
}

// Begin starts (or restarts) an investment for a registered user
func (e *Engine) Begin(ctx context.Context, userID int64) (Prompt, error) {
	defer e.lock(userID)()

	user, err := e.users.GetUserByID(ctx, userID)
	if errors.Is(err, services.ErrUserNotFound) {
		return Prompt{Kind: PromptNeedsRegistration}, nil
	}
	if err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	if !user.IsRegistered() {
		return Prompt{Kind: PromptNeedsRegistration}, nil
	}

	s, err := e.load(ctx, userID)
	if err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	s.Step = StepAwaitingAmount
	s.Quote = nil
	s.TermsAccepted = false
	if err := e.save(ctx, s); err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	return Prompt{Kind: PromptEnterAmount, Step: s.Step, Minimum: e.cfg.MinAmount}, nil
}

// Cancel discards an in-progress submission
func (e *Engine) Cancel(ctx context.Context, userID int64) (Prompt, error) {
	defer e.lock(userID)()

	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	if s == nil || !s.Active() {
		return Prompt{Kind: PromptNoSession}, nil
	}
	if err := e.end(ctx, s); err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	return Prompt{Kind: PromptCancelled}, nil
}

// CurrentStep returns where the user currently is
func (e *Engine) CurrentStep(ctx context.Context, userID int64) (Step, error) {
	s, err := e.store.Load(ctx, userID)
	if err != nil || s == nil {
		return StepIdle, err
	}
	return s.Step, nil
}

// Handle advances the user's session with one input
func (e *Engine) Handle(ctx context.Context, userID int64, in Input) (Prompt, error) {
	defer e.lock(userID)()

	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	if s == nil || !s.Active() {
		return Prompt{Kind: PromptNoSession}, nil
	}

	if in.Action == ActionCancel {
		if err := e.end(ctx, s); err != nil {
			return Prompt{Kind: PromptFailure}, err
		}
		return Prompt{Kind: PromptCancelled}, nil
	}

	switch s.Step {
	case StepAwaitingAmount:
		return e.onAmount(ctx, s, in)
	case StepAwaitingConfirmation:
		if in.Action != ActionAccept {
			return e.unexpected(s), nil
		}
		s.Step = StepAwaitingTerms
		if err := e.save(ctx, s); err != nil {
			return Prompt{Kind: PromptFailure}, err
		}
		return Prompt{Kind: PromptTerms, Step: s.Step, Quote: s.Quote}, nil
	case StepAwaitingTerms:
		switch in.Action {
		case ActionDisagree:
			if err := e.end(ctx, s); err != nil {
				return Prompt{Kind: PromptFailure}, err
			}
			return Prompt{Kind: PromptCancelled}, nil
		case ActionAgree:
			s.TermsAccepted = true
			s.Step = StepAwaitingPayment
			if err := e.save(ctx, s); err != nil {
				return Prompt{Kind: PromptFailure}, err
			}
			return Prompt{Kind: PromptPayment, Step: s.Step, Quote: s.Quote, PaymentAddress: e.cfg.PaymentAddress}, nil
		}
		return e.unexpected(s), nil
	case StepAwaitingPayment:
		if in.Action != ActionProceed {
			return e.unexpected(s), nil
		}
		s.Step = StepAwaitingEvidence
		if err := e.save(ctx, s); err != nil {
			return Prompt{Kind: PromptFailure}, err
		}
		return Prompt{Kind: PromptEvidence, Step: s.Step}, nil
	case StepAwaitingEvidence:
		return e.onEvidence(ctx, s, in)
	}

	e.logger.Warn("session in unknown step, resetting", zap.Int64("user_id", userID), zap.String("step", string(s.Step)))
	if err := e.end(ctx, s); err != nil {
		return Prompt{Kind: PromptFailure}, err
	}
	return Prompt{Kind: PromptNoSession}, nil
}

func (e *Engine) unexpected(s *Session) Prompt {
	p := Prompt{Kind: PromptUnexpected, Step: s.Step, Quote: s.Quote}
	if s.Step == StepAwaitingPayment {
		p.PaymentAddress = e.cfg.PaymentAddress
	}
	return p
}

func (e *Engine) onAmount(ctx context.Context, s *Session, in Input) (Prompt, error) {
	if in.Action != ActionText {
		return Prompt{Kind: PromptInvalidAmount, Step: s.Step, Minimum: e.cfg.MinAmount, Reason: "enter a number"}, nil
	}

	amount, err := services.ParseAmount(in.Text)
	if err == nil {
		var quote services.Quote
		quote, err = services.NewQuote(amount, e.cfg.MinAmount)
		if err == nil {
			s.Quote = &quote
			s.Step = StepAwaitingConfirmation
			if err := e.save(ctx, s); err != nil {
				return Prompt{Kind: PromptFailure}, err
			}
			return Prompt{Kind: PromptConfirmQuote, Step: s.Step, Quote: s.Quote}, nil
		}
	}

	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return Prompt{Kind: PromptInvalidAmount, Step: s.Step, Minimum: e.cfg.MinAmount, Reason: ve.Reason}, nil
	}
	return Prompt{Kind: PromptFailure}, err
}

func (e *Engine) onEvidence(ctx context.Context, s *Session, in Input) (Prompt, error) {
	ev := services.EvidenceInput{ChatID: in.ChatID, MessageID: in.MessageID}
	switch in.Action {
	case ActionSkipEvidence:
		ev.Skip = true
	case ActionText:
		ev.Text = in.Text
	case ActionPhoto:
		ev.PhotoFileID = in.FileID
	case ActionDocument:
		ev.DocumentFileID = in.FileID
	default:
		return e.unexpected(s), nil
	}
	if s.Quote == nil {
		// a session restored from an older checkpoint without a quote
		if err := e.end(ctx, s); err != nil {
			return Prompt{Kind: PromptFailure}, err
		}
		return Prompt{Kind: PromptNoSession}, nil
	}

	evidence, err := e.evidence.Collect(ctx, s.UserID, ev)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			return Prompt{Kind: PromptInvalidEvidence, Step: s.Step, Reason: ve.Reason}, nil
		}
		return Prompt{Kind: PromptFailure, Step: s.Step}, err
	}

	inv, err := e.submitter.Submit(ctx, s.UserID, *s.Quote, evidence)
	if err != nil {
		// the session stays at evidence so the user can retry
		e.logger.Error("submission failed", zap.Int64("user_id", s.UserID), zap.Error(err))
		return Prompt{Kind: PromptFailure, Step: s.Step}, err
	}

	quote := s.Quote
	if err := e.end(ctx, s); err != nil {
		e.logger.Warn("failed to clear session after submission", zap.Int64("user_id", s.UserID), zap.Error(err))
	}
	return Prompt{Kind: PromptSubmitted, Quote: quote, Investment: inv}, nil
}

// SetPendingReferrer remembers who invited the user until registration completes
func (e *Engine) SetPendingReferrer(ctx context.Context, userID, referrerID int64) error {
	defer e.lock(userID)()

	s, err := e.load(ctx, userID)
	if err != nil {
		return err
	}
	s.PendingReferrerID = &referrerID
	return e.save(ctx, s)
}

// PendingReferrer returns the remembered inviter without clearing it
func (e *Engine) PendingReferrer(ctx context.Context, userID int64) (*int64, error) {
	s, err := e.store.Load(ctx, userID)
	if err != nil || s == nil {
		return nil, err
	}
	return s.PendingReferrerID, nil
}

// TakePendingReferrer returns and clears the remembered inviter
func (e *Engine) TakePendingReferrer(ctx context.Context, userID int64) (*int64, error) {
	defer e.lock(userID)()

	s, err := e.store.Load(ctx, userID)
	if err != nil || s == nil || s.PendingReferrerID == nil {
		return nil, err
	}
	referrer := s.PendingReferrerID
	s.PendingReferrerID = nil
	if s.Active() {
		err = e.save(ctx, s)
	} else {
		err = e.store.Delete(ctx, userID)
	}
	return referrer, err
}
