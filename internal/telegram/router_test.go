package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"

	"investment-bot/internal/auth"
	"investment-bot/internal/database"
	"investment-bot/internal/models"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"
	"investment-bot/internal/services"
	"investment-bot/internal/workflow"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	chatID int64
	text   string
}

type forwardedMessage struct {
	chatID, fromChatID, messageID int64
}

type fakeAPI struct {
	mu        sync.Mutex
	sent      []sentMessage
	forwarded []forwardedMessage
}

func (f *fakeAPI) SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatId, text: text})
	return &gotgbot.Message{Chat: gotgbot.Chat{Id: chatId}, Text: text}, nil
}

func (f *fakeAPI) ForwardMessage(chatId int64, fromChatId int64, messageId int64, opts *gotgbot.ForwardMessageOpts) (*gotgbot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, forwardedMessage{chatID: chatId, fromChatID: fromChatId, messageID: messageId})
	return &gotgbot.Message{Chat: gotgbot.Chat{Id: chatId}}, nil
}

func (f *fakeAPI) GetUpdates(opts *gotgbot.GetUpdatesOpts) ([]gotgbot.Update, error) {
	return nil, nil
}

func (f *fakeAPI) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]notify.Payload
}

func (r *recordingNotifier) Notify(ctx context.Context, userID int64, payload notify.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[int64][]notify.Payload)
	}
	r.sent[userID] = append(r.sent[userID], payload)
}

func (r *recordingNotifier) to(userID int64) []notify.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[userID]
}

const (
	adminUser    int64 = 1
	investorUser int64 = 100
	wallet             = "0x1234567890abcdef1234"
	paymentAddr        = "0xCOMPANYWALLET"
)

type routerEnv struct {
	api       *fakeAPI
	router    *Router
	notifier  *recordingNotifier
	repo      *repository.Repository
	referrals *services.ReferralService
}

func setupRouter(t *testing.T) *routerEnv {
	db, err := database.OpenInMemory(uuid.NewString())
	require.NoError(t, err)

	auth.InitJWT("router-test-secret")
	repo := repository.NewRepository(db)
	admins := auth.NewAllowList([]int64{adminUser})
	notifier := &recordingNotifier{}
	logger := zap.NewNop()

	referrals := services.NewReferralService(repo, logger)
	adminService := services.NewAdminService(repo, admins, logger)
	users := services.NewUserService(repo, referrals, notifier, logger)
	investments := services.NewInvestmentService(repo, admins, notifier, logger)
	engine := workflow.NewEngine(
		workflow.NewMemoryStore(),
		users,
		services.NewEvidenceCollector(admins, notifier, logger),
		investments,
		workflow.Config{MinAmount: services.MinimumInvestment, PaymentAddress: paymentAddr},
		logger,
	)

	api := &fakeAPI{}
	router := NewRouter(Deps{
		Bot:          &Bot{Api: api},
		Engine:       engine,
		Users:        users,
		Referrals:    referrals,
		Investments:  investments,
		Confirmation: services.NewConfirmationService(repo, admins, notifier, logger),
		Ledger:       services.NewLedgerService(repo, admins, adminService, logger),
		Admin:        adminService,
		Authorizer:   admins,
		BotUsername:  "InvestBot",
		Logger:       logger,
	})
	return &routerEnv{api: api, router: router, notifier: notifier, repo: repo, referrals: referrals}
}

func (e *routerEnv) send(t *testing.T, from int64, text string) string {
	t.Helper()
	e.router.Route(context.Background(), &gotgbot.Message{
		MessageId: 1,
		From:      &gotgbot.User{Id: from, FirstName: "User", LastName: "Test"},
		Chat:      gotgbot.Chat{Id: from},
		Text:      text,
	})
	reply := e.api.last(t)
	assert.Equal(t, from, reply.chatID)
	return reply.text
}

func (e *routerEnv) register(t *testing.T, userID int64) {
	t.Helper()
	e.send(t, userID, "/start")
	require.Contains(t, e.send(t, userID, "/wallet "+wallet), "Registration complete")
}

func TestInvestmentConversation(t *testing.T) {
	env := setupRouter(t)

	assert.Contains(t, env.send(t, investorUser, "/start"), "/wallet")
	assert.Contains(t, env.send(t, investorUser, ButtonInvest), "finish registration")
	assert.Contains(t, env.send(t, investorUser, "/wallet nope"), "invalid wallet")
	assert.Contains(t, env.send(t, investorUser, "/wallet "+wallet), "Registration complete")

	assert.Contains(t, env.send(t, investorUser, ButtonInvest), "$500.00")
	assert.Contains(t, env.send(t, investorUser, "100"), "at least")
	assert.Contains(t, env.send(t, investorUser, "7500"), "Monthly profit: $375.00")
	assert.Contains(t, env.send(t, investorUser, ButtonAccept), "Terms of investment")
	assert.Contains(t, env.send(t, investorUser, ButtonAgree), paymentAddr)
	assert.Contains(t, env.send(t, investorUser, ButtonPaid), "proof of payment")
	assert.Contains(t, env.send(t, investorUser, "0xdeadbeef"), "request #1 has been submitted")

	adminMessages := env.notifier.to(adminUser)
	require.Len(t, adminMessages, 1)
	assert.Equal(t, notify.KindInvestmentSubmitted, adminMessages[0].Kind)

	assert.Contains(t, env.send(t, investorUser, "/confirm_invest_1"), "not allowed")
	assert.Contains(t, env.send(t, adminUser, "/confirm_invest_1"), "is now active")
	assert.Contains(t, env.send(t, adminUser, "/reject_invest_1"), "already active")
	assert.Contains(t, env.send(t, adminUser, "/confirm_invest_99"), "not found")

	assert.Contains(t, env.send(t, investorUser, ButtonBalance), "Active principal: $7500.00")
	assert.Contains(t, env.send(t, investorUser, "/investments"), "#1 $7500.00")
}

func TestCancelMidConversation(t *testing.T) {
	env := setupRouter(t)
	env.register(t, investorUser)

	env.send(t, investorUser, "/invest")
	env.send(t, investorUser, "2000")
	assert.Contains(t, env.send(t, investorUser, ButtonCancel), "cancelled")
	assert.Contains(t, env.send(t, investorUser, "/cancel"), "nothing in progress")

	count, err := env.repo.CountInvestments(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPhotoEvidenceIsForwardedToAdmins(t *testing.T) {
	env := setupRouter(t)
	env.register(t, investorUser)
	for _, text := range []string{"/invest", "1000", ButtonAccept, ButtonAgree, ButtonPaid} {
		env.send(t, investorUser, text)
	}

	env.router.Route(context.Background(), &gotgbot.Message{
		MessageId: 77,
		From:      &gotgbot.User{Id: investorUser, FirstName: "User"},
		Chat:      gotgbot.Chat{Id: investorUser},
		Photo:     []gotgbot.PhotoSize{{FileId: "thumb"}, {FileId: "AgACfull"}},
	})
	assert.Contains(t, env.api.last(t).text, "submitted")

	var forward *notify.Payload
	for _, p := range env.notifier.to(adminUser) {
		if p.Kind == notify.KindEvidenceForward {
			p := p
			forward = &p
		}
	}
	require.NotNil(t, forward)
	assert.Equal(t, int64(77), forward.ForwardMessageID)
	assert.Equal(t, "photo - file ID: AgACfull", forward.EvidenceDisplay)
}

func TestReferralRegistration(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()
	const inviter, invitee int64 = 200, 300

	env.register(t, inviter)
	code, err := env.referrals.GenerateCode(ctx, inviter)
	require.NoError(t, err)

	assert.Contains(t, env.send(t, inviter, ButtonReferrals), "https://t.me/InvestBot?start=ref_"+code)

	env.send(t, invitee, "/start ref_"+code)
	env.send(t, invitee, "/wallet "+wallet)

	referral, err := env.repo.GetReferralByReferred(ctx, invitee)
	require.NoError(t, err)
	assert.Equal(t, inviter, referral.ReferrerID)

	joined := env.notifier.to(inviter)
	require.Len(t, joined, 1)
	assert.Equal(t, notify.KindReferralJoined, joined[0].Kind)

	// a second link never re-attributes
	env.send(t, invitee, "/start ref_"+code)
	env.send(t, invitee, "/wallet "+wallet)
	assert.Len(t, env.notifier.to(inviter), 1)
}

func TestSelfReferralIgnored(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()

	env.send(t, investorUser, "/start")
	require.NoError(t, env.repo.UpdateUserFields(ctx, investorUser, map[string]interface{}{"invite_code": "RAMO100SELF00"}))

	env.send(t, investorUser, "/start ref_RAMO100SELF00")
	env.send(t, investorUser, "/wallet "+wallet)

	_, err := env.repo.GetReferralByReferred(ctx, investorUser)
	assert.Error(t, err)
}

func TestAdminCommands(t *testing.T) {
	env := setupRouter(t)
	env.register(t, investorUser)

	assert.Contains(t, env.send(t, adminUser, "/balance_100_add_50"), "now $50.00")
	assert.Contains(t, env.send(t, adminUser, "/balance_100_subtract_80"), "negative")
	assert.Contains(t, env.send(t, adminUser, "/balance_100_set_10"), "now $10.00")
	assert.Contains(t, env.send(t, adminUser, "/balance_100_add_0.001"), "2 decimal places")
	assert.Contains(t, env.send(t, investorUser, "/balance_100_set_1000"), "not allowed")

	assert.Contains(t, env.send(t, adminUser, "/pending"), "No pending investments")
	assert.Contains(t, env.send(t, investorUser, "/pending"), "not allowed")
	assert.Contains(t, env.send(t, adminUser, "/stats"), "Users: 1 (registered 1)")
	assert.Contains(t, env.send(t, adminUser, "/user_100"), wallet)

	reply := env.send(t, adminUser, "/token")
	token := strings.TrimSpace(reply[strings.LastIndex(reply, "\n"):])
	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, adminUser, claims.UserID)
	assert.True(t, claims.IsAdmin())

	reply = env.send(t, investorUser, "/token")
	token = strings.TrimSpace(reply[strings.LastIndex(reply, "\n"):])
	claims, err = auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, investorUser, claims.UserID)
	assert.False(t, claims.IsAdmin())

	assert.Contains(t, env.send(t, 555, "/token"), "Complete registration")
	assert.Contains(t, env.send(t, investorUser, "/nonsense"), "Unknown command")
}

func TestDeliverForwardsEvidence(t *testing.T) {
	api := &fakeAPI{}
	bot := &Bot{Api: api}

	err := bot.Deliver(context.Background(), adminUser, notify.Payload{
		Kind:             notify.KindEvidenceForward,
		UserID:           investorUser,
		EvidenceKind:     string(models.EvidencePhoto),
		EvidenceDisplay:  "photo - file ID: x",
		ForwardChatID:    investorUser,
		ForwardMessageID: 9,
	})
	require.NoError(t, err)
	require.Len(t, api.forwarded, 1)
	assert.Equal(t, forwardedMessage{chatID: adminUser, fromChatID: investorUser, messageID: 9}, api.forwarded[0])
	assert.Contains(t, api.last(t).text, "Payment proof from user 100")
}
