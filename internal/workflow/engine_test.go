package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	u, ok := f[userID]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return u, nil
}

type passthroughCollector struct{}

func (passthroughCollector) Collect(ctx context.Context, userID int64, in services.EvidenceInput) (services.Evidence, error) {
	switch {
	case in.Skip:
		return services.Evidence{Content: "none", Kind: models.EvidenceNone}, nil
	case in.PhotoFileID != "":
		return services.Evidence{Content: "photo - file ID: " + in.PhotoFileID, Kind: models.EvidencePhoto}, nil
	case strings.TrimSpace(in.Text) != "":
		return services.Evidence{Content: strings.TrimSpace(in.Text), Kind: models.EvidenceText}, nil
	}
	return services.Evidence{}, &services.ValidationError{Field: "evidence", Reason: "empty"}
}

type recordingSubmitter struct {
	mu        sync.Mutex
	submitted []services.Evidence
	quotes    []services.Quote
	err       error
}

func (r *recordingSubmitter) Submit(ctx context.Context, userID int64, quote services.Quote, evidence services.Evidence) (*models.Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.submitted = append(r.submitted, evidence)
	r.quotes = append(r.quotes, quote)
	return &models.Investment{
		ID:              uint(len(r.submitted)),
		UserID:          userID,
		Amount:          quote.Amount,
		AnnualRate:      quote.AnnualRate,
		MonthlyRate:     quote.MonthlyRate,
		Status:          models.InvestmentPending,
		EvidenceContent: evidence.Content,
		EvidenceKind:    evidence.Kind,
	}, nil
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submitted)
}

const investor int64 = 42

func newTestEngine(t *testing.T) (*Engine, *MemoryStore, *recordingSubmitter) {
	t.Helper()
	now := time.Now()
	users := fakeUsers{
		investor: {ID: investor, FullName: "Investor", WalletAddress: "0x1234567890abcdef1234", RegisteredAt: &now},
		7:        {ID: 7, FullName: "Unregistered"},
	}
	store := NewMemoryStore()
	submitter := &recordingSubmitter{}
	engine := NewEngine(store, users, passthroughCollector{}, submitter, Config{
		MinAmount:      services.MinimumInvestment,
		PaymentAddress: "0xPAY",
	}, zap.NewNop())
	return engine, store, submitter
}

func text(s string) Input { return Input{Action: ActionText, Text: s} }

// driveTo walks a fresh session up to step
func driveTo(t *testing.T, e *Engine, step Step) {
	t.Helper()
	ctx := context.Background()
	p, err := e.Begin(ctx, investor)
	require.NoError(t, err)
	require.Equal(t, PromptEnterAmount, p.Kind)

	path := []struct {
		until Step
		in    Input
	}{
		{StepAwaitingAmount, text("7500")},
		{StepAwaitingConfirmation, Input{Action: ActionAccept}},
		{StepAwaitingTerms, Input{Action: ActionAgree}},
		{StepAwaitingPayment, Input{Action: ActionProceed}},
	}
	for _, hop := range path {
		if hop.until == step {
			return
		}
		_, err := e.Handle(ctx, investor, hop.in)
		require.NoError(t, err)
	}
	require.Equal(t, StepAwaitingEvidence, step)
}

func TestFullFlowSubmitsPendingInvestment(t *testing.T) {
	e, store, submitter := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Begin(ctx, investor)
	require.NoError(t, err)

	p, err := e.Handle(ctx, investor, text("$7,500"))
	require.NoError(t, err)
	require.Equal(t, PromptConfirmQuote, p.Kind)
	require.NotNil(t, p.Quote)
	assert.True(t, p.Quote.AnnualRate.Equal(decimal.NewFromInt(60)))
	assert.True(t, p.Quote.MonthlyRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, p.Quote.MonthlyProfit.Equal(decimal.NewFromInt(375)))

	p, err = e.Handle(ctx, investor, Input{Action: ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, PromptTerms, p.Kind)

	p, err = e.Handle(ctx, investor, Input{Action: ActionAgree})
	require.NoError(t, err)
	assert.Equal(t, PromptPayment, p.Kind)
	assert.Equal(t, "0xPAY", p.PaymentAddress)

	p, err = e.Handle(ctx, investor, Input{Action: ActionProceed})
	require.NoError(t, err)
	assert.Equal(t, PromptEvidence, p.Kind)

	p, err = e.Handle(ctx, investor, text("0xabc123"))
	require.NoError(t, err)
	require.Equal(t, PromptSubmitted, p.Kind)
	require.NotNil(t, p.Investment)
	assert.Equal(t, models.InvestmentPending, p.Investment.Status)
	assert.Equal(t, "0xabc123", p.Investment.EvidenceContent)

	assert.Equal(t, 1, submitter.count())
	assert.Equal(t, 0, store.Len(), "a finished session is discarded")
}

func TestCancelFromEveryState(t *testing.T) {
	steps := []Step{
		StepAwaitingAmount,
		StepAwaitingConfirmation,
		StepAwaitingTerms,
		StepAwaitingPayment,
		StepAwaitingEvidence,
	}
	for _, step := range steps {
		t.Run(string(step), func(t *testing.T) {
			e, store, submitter := newTestEngine(t)
			ctx := context.Background()
			driveTo(t, e, step)

			current, err := e.CurrentStep(ctx, investor)
			require.NoError(t, err)
			require.Equal(t, step, current)

			p, err := e.Handle(ctx, investor, Input{Action: ActionCancel})
			require.NoError(t, err)
			assert.Equal(t, PromptCancelled, p.Kind)
			assert.Equal(t, 0, store.Len())
			assert.Equal(t, 0, submitter.count(), "cancel never persists an investment")
		})
	}
}

func TestCancelWithoutSession(t *testing.T) {
	e, _, _ := newTestEngine(t)
	p, err := e.Cancel(context.Background(), investor)
	require.NoError(t, err)
	assert.Equal(t, PromptNoSession, p.Kind)
}

func TestInvalidAmountReprompts(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	driveTo(t, e, StepAwaitingAmount)

	for _, raw := range []string{"abc", "499.99", "-10", "", "5000.004", "1e20"} {
		p, err := e.Handle(ctx, investor, text(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, PromptInvalidAmount, p.Kind, raw)
		assert.Equal(t, StepAwaitingAmount, p.Step, raw)
		assert.NotEmpty(t, p.Reason, raw)
	}

	p, err := e.Handle(ctx, investor, text("500"))
	require.NoError(t, err)
	assert.Equal(t, PromptConfirmQuote, p.Kind)
	assert.True(t, p.Quote.AnnualRate.Equal(decimal.NewFromInt(50)))
}

func TestUnexpectedInputKeepsStep(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	driveTo(t, e, StepAwaitingPayment)

	p, err := e.Handle(ctx, investor, text("hello"))
	require.NoError(t, err)
	assert.Equal(t, PromptUnexpected, p.Kind)
	assert.Equal(t, StepAwaitingPayment, p.Step)
	assert.Equal(t, "0xPAY", p.PaymentAddress)

	current, err := e.CurrentStep(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingPayment, current)
}

func TestDisagreeEndsSession(t *testing.T) {
	e, store, submitter := newTestEngine(t)
	driveTo(t, e, StepAwaitingTerms)

	p, err := e.Handle(context.Background(), investor, Input{Action: ActionDisagree})
	require.NoError(t, err)
	assert.Equal(t, PromptCancelled, p.Kind)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, submitter.count())
}

func TestBeginRequiresRegistration(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	p, err := e.Begin(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, PromptNeedsRegistration, p.Kind)

	p, err = e.Begin(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, PromptNeedsRegistration, p.Kind)
	assert.Equal(t, 0, store.Len())
}

func TestEmptyEvidenceReprompts(t *testing.T) {
	e, _, submitter := newTestEngine(t)
	ctx := context.Background()
	driveTo(t, e, StepAwaitingEvidence)

	p, err := e.Handle(ctx, investor, text("   "))
	require.NoError(t, err)
	assert.Equal(t, PromptInvalidEvidence, p.Kind)
	assert.Equal(t, 0, submitter.count())

	p, err = e.Handle(ctx, investor, Input{Action: ActionSkipEvidence})
	require.NoError(t, err)
	assert.Equal(t, PromptSubmitted, p.Kind)
	require.NotNil(t, p.Investment)
	assert.Equal(t, models.EvidenceNone, p.Investment.EvidenceKind)
}

func TestSubmitFailureKeepsEvidenceStep(t *testing.T) {
	e, store, submitter := newTestEngine(t)
	ctx := context.Background()
	driveTo(t, e, StepAwaitingEvidence)

	submitter.err = errors.New("database is down")
	p, err := e.Handle(ctx, investor, Input{Action: ActionPhoto, FileID: "AgAD"})
	require.Error(t, err)
	assert.Equal(t, PromptFailure, p.Kind)
	assert.Equal(t, 1, store.Len())

	current, err := e.CurrentStep(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingEvidence, current)

	submitter.err = nil
	p, err = e.Handle(ctx, investor, Input{Action: ActionPhoto, FileID: "AgAD"})
	require.NoError(t, err)
	assert.Equal(t, PromptSubmitted, p.Kind)
	assert.Equal(t, models.EvidencePhoto, p.Investment.EvidenceKind)
}

func TestPendingReferrerSurvivesFlow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.SetPendingReferrer(ctx, investor, 11))
	driveTo(t, e, StepAwaitingTerms)
	_, err := e.Cancel(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len(), "the referrer outlives the cancelled flow")

	peek, err := e.PendingReferrer(ctx, investor)
	require.NoError(t, err)
	require.NotNil(t, peek)
	assert.Equal(t, int64(11), *peek)

	referrer, err := e.TakePendingReferrer(ctx, investor)
	require.NoError(t, err)
	require.NotNil(t, referrer)
	assert.Equal(t, int64(11), *referrer)
	assert.Equal(t, 0, store.Len())

	referrer, err = e.TakePendingReferrer(ctx, investor)
	require.NoError(t, err)
	assert.Nil(t, referrer)
}

func TestConcurrentInputsForOneUser(t *testing.T) {
	e, _, submitter := newTestEngine(t)
	ctx := context.Background()
	driveTo(t, e, StepAwaitingEvidence)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Handle(ctx, investor, text("0xhash"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, submitter.count(), "only one submission per session")
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)

	require.NoError(t, store.Save(ctx, &Session{UserID: 1, Step: StepAwaitingAmount, UpdatedAt: old}))
	require.NoError(t, store.Save(ctx, &Session{UserID: 2, Step: StepAwaitingTerms, UpdatedAt: time.Now()}))

	removed := store.Sweep(time.Now().Add(-time.Hour))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	s, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	quote, err := services.NewQuote(decimal.NewFromInt(1000), services.MinimumInvestment)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, &Session{UserID: 1, Step: StepAwaitingConfirmation, Quote: &quote}))
	loaded, err := store.Load(ctx, 1)
	require.NoError(t, err)
	loaded.Quote.Amount = decimal.NewFromInt(1)

	again, err := store.Load(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.Quote.Amount.Equal(decimal.NewFromInt(1000)))
}
