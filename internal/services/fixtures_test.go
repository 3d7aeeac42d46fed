package services

import (
	"context"
	"sync"
	"testing"

	"investment-bot/internal/database"
	"investment-bot/internal/models"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t testing.TB) *gorm.DB {
	db, err := database.OpenInMemory(uuid.NewString())
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	return db
}

type staticAdmins []int64

func (s staticAdmins) IsAdministrator(userID int64) bool {
	for _, id := range s {
		if id == userID {
			return true
		}
	}
	return false
}

func (s staticAdmins) Administrators() []int64 { return s }

type sentNotification struct {
	userID  int64
	payload notify.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(ctx context.Context, userID int64, payload notify.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{userID: userID, payload: payload})
}

func (r *recordingNotifier) ofKind(kind notify.Kind) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.payload.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

const testAdmin int64 = 9000

type testEnv struct {
	db           *gorm.DB
	repo         *repository.Repository
	notifier     *recordingNotifier
	admins       staticAdmins
	referrals    *ReferralService
	users        *UserService
	investments  *InvestmentService
	confirmation *ConfirmationService
	ledger       *LedgerService
	admin        *AdminService
	evidence     *EvidenceCollector
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	notifier := &recordingNotifier{}
	admins := staticAdmins{testAdmin}
	logger := zap.NewNop()

	referrals := NewReferralService(repo, logger)
	admin := NewAdminService(repo, admins, logger)
	return &testEnv{
		db:           db,
		repo:         repo,
		notifier:     notifier,
		admins:       admins,
		referrals:    referrals,
		users:        NewUserService(repo, referrals, notifier, logger),
		investments:  NewInvestmentService(repo, admins, notifier, logger),
		confirmation: NewConfirmationService(repo, admins, notifier, logger),
		ledger:       NewLedgerService(repo, admins, admin, logger),
		admin:        admin,
		evidence:     NewEvidenceCollector(admins, notifier, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, id int64) *models.User {
	t.Helper()
	user, err := e.users.EnsureUser(context.Background(), id, "Investor")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (e *testEnv) submit(t *testing.T, userID int64, amount int64) *models.Investment {
	t.Helper()
	quote, err := NewQuote(decimalFromInt(amount), MinimumInvestment)
	if err != nil {
		t.Fatalf("failed to quote: %v", err)
	}
	inv, err := e.investments.Submit(context.Background(), userID, quote, Evidence{Content: "0xhash", Kind: models.EvidenceText})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	return inv
}
