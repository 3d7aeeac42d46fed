package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"investment-bot/internal/auth"
	"investment-bot/internal/services"
	"investment-bot/internal/workflow"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"go.uber.org/zap"
)

const pendingListLimit = 20

// Deps are the collaborators a Router dispatches to
type Deps struct {
	Bot          *Bot
	Engine       *workflow.Engine
	Users        *services.UserService
	Referrals    *services.ReferralService
	Investments  *services.InvestmentService
	Confirmation *services.ConfirmationService
	Ledger       *services.LedgerService
	Admin        *services.AdminService
	Authorizer   services.Authorizer
	BotUsername  string
	Logger       *zap.Logger
}

// Router turns incoming messages into service calls and replies
type Router struct {
	Deps
	logger *zap.Logger
}

func NewRouter(deps Deps) *Router {
	return &Router{
		Deps:   deps,
		logger: deps.Logger.Named("telegram"),
	}
}

func (r *Router) reply(chatID int64, text string, markup *gotgbot.ReplyKeyboardMarkup) {
	if err := r.Bot.Send(chatID, text, markup); err != nil {
		r.logger.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) replyPrompt(chatID int64, p workflow.Prompt) {
	text, markup := RenderPrompt(p)
	r.reply(chatID, text, &markup)
}

func (r *Router) replyError(chatID int64, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		r.reply(chatID, "⚠️ "+ve.Error(), nil)
	case errors.Is(err, services.ErrNotAuthorized):
		r.reply(chatID, "You are not allowed to do that.", nil)
	case errors.Is(err, services.ErrInvestmentNotFound):
		r.reply(chatID, "Investment not found.", nil)
	case errors.Is(err, services.ErrUserNotFound):
		r.reply(chatID, "User not found.", nil)
	default:
		r.reply(chatID, "Something went wrong. Please try again in a moment.", nil)
	}
}

func fullName(u *gotgbot.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Route handles one incoming message
func (r *Router) Route(ctx context.Context, msg *gotgbot.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	userID := msg.From.Id
	chatID := msg.Chat.Id

	if cmd, ok := parseCommand(msg.Text); ok {
		r.routeCommand(ctx, msg, cmd)
		return
	}

	switch strings.TrimSpace(msg.Text) {
	case ButtonInvest:
		r.beginInvestment(ctx, userID, chatID)
		return
	case ButtonInvestments:
		r.showInvestments(ctx, userID, chatID)
		return
	case ButtonBalance:
		r.showBalance(ctx, userID, chatID)
		return
	case ButtonReferrals:
		r.showReferral(ctx, userID, chatID)
		return
	}

	p, err := r.Engine.Handle(ctx, userID, workflowInput(msg))
	if err != nil {
		r.logger.Error("workflow input failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	r.replyPrompt(chatID, p)
}

func (r *Router) routeCommand(ctx context.Context, msg *gotgbot.Message, cmd command) {
	userID := msg.From.Id
	chatID := msg.Chat.Id

	switch cmd.name {
	case "start":
		r.start(ctx, msg, cmd.args)
		return
	case "wallet":
		r.completeRegistration(ctx, msg, cmd.args)
		return
	case "invest":
		r.beginInvestment(ctx, userID, chatID)
		return
	case "cancel":
		p, err := r.Engine.Cancel(ctx, userID)
		if err != nil {
			r.logger.Error("cancel failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		r.replyPrompt(chatID, p)
		return
	case "balance":
		r.showBalance(ctx, userID, chatID)
		return
	case "investments":
		r.showInvestments(ctx, userID, chatID)
		return
	case "referral":
		r.showReferral(ctx, userID, chatID)
		return
	case "pending":
		r.showPending(ctx, userID, chatID)
		return
	case "stats":
		r.showStats(ctx, userID, chatID)
		return
	case "token":
		r.issueToken(ctx, userID, chatID)
		return
	}

	if id, ok := parseIDSuffix(cmd.name, confirmPrefix); ok {
		r.decide(ctx, chatID, userID, uint(id), r.Confirmation.Confirm)
		return
	}
	if id, ok := parseIDSuffix(cmd.name, rejectPrefix); ok {
		r.decide(ctx, chatID, userID, uint(id), r.Confirmation.Reject)
		return
	}
	if id, ok := parseIDSuffix(cmd.name, userPrefix); ok {
		r.showUser(ctx, userID, chatID, int64(id))
		return
	}
	if directive, ok := parseBalanceDirective(cmd.name); ok {
		r.adjustBalance(ctx, userID, chatID, directive)
		return
	}

	r.reply(chatID, "Unknown command.", nil)
}

func (r *Router) start(ctx context.Context, msg *gotgbot.Message, args []string) {
	userID := msg.From.Id
	chatID := msg.Chat.Id

	user, err := r.Users.EnsureUser(ctx, userID, fullName(msg.From))
	if err != nil {
		r.logger.Error("failed to ensure user", zap.Int64("user_id", userID), zap.Error(err))
		r.replyError(chatID, err)
		return
	}

	if code, ok := referralCode(args); ok && !user.IsRegistered() {
		referrerID, err := r.Referrals.Resolve(ctx, code)
		switch {
		case errors.Is(err, services.ErrReferralCodeNotFound):
			r.logger.Debug("unknown invite code", zap.Int64("user_id", userID), zap.String("code", code))
		case err != nil:
			r.logger.Warn("invite code lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		case referrerID != userID:
			if err := r.Engine.SetPendingReferrer(ctx, userID, referrerID); err != nil {
				r.logger.Warn("failed to remember inviter", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
	}

	menu := mainMenu()
	if !user.IsRegistered() {
		r.reply(chatID, fmt.Sprintf(
			"Welcome, %s!\n\nTo start investing, send /wallet followed by your payout address (starting with 0x).",
			user.FullName,
		), &menu)
		return
	}
	r.reply(chatID, fmt.Sprintf("Welcome back, %s!", user.FullName), &menu)
}

func (r *Router) completeRegistration(ctx context.Context, msg *gotgbot.Message, args []string) {
	userID := msg.From.Id
	chatID := msg.Chat.Id
	if len(args) == 0 {
		r.reply(chatID, "Usage: /wallet 0xYourAddress", nil)
		return
	}
	if err := services.ValidateWalletAddress(args[0]); err != nil {
		r.replyError(chatID, err)
		return
	}

	referrerID, err := r.Engine.TakePendingReferrer(ctx, userID)
	if err != nil {
		r.logger.Warn("failed to read pending inviter", zap.Int64("user_id", userID), zap.Error(err))
	}

	user, err := r.Users.CompleteRegistration(ctx, services.Registration{
		UserID:        userID,
		FullName:      fullName(msg.From),
		Language:      msg.From.LanguageCode,
		WalletAddress: args[0],
		ReferrerID:    referrerID,
	})
	if err != nil {
		if referrerID != nil {
			if err := r.Engine.SetPendingReferrer(ctx, userID, *referrerID); err != nil {
				r.logger.Warn("failed to restore pending inviter", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
		r.replyError(chatID, err)
		return
	}

	menu := mainMenu()
	r.reply(chatID, fmt.Sprintf("✅ Registration complete. Payout wallet: %s\nYou can now invest.", user.WalletAddress), &menu)
}

func (r *Router) beginInvestment(ctx context.Context, userID, chatID int64) {
	p, err := r.Engine.Begin(ctx, userID)
	if err != nil {
		r.logger.Error("failed to begin investment", zap.Int64("user_id", userID), zap.Error(err))
	}
	r.replyPrompt(chatID, p)
}

func (r *Router) showBalance(ctx context.Context, userID, chatID int64) {
	summary, err := r.Ledger.Summary(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, renderSummary(summary), nil)
}

func (r *Router) showInvestments(ctx context.Context, userID, chatID int64) {
	investments, err := r.Investments.ListForUser(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, renderInvestments(investments), nil)
}

func (r *Router) showReferral(ctx context.Context, userID, chatID int64) {
	code, err := r.Referrals.GenerateCode(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	stats, err := r.Referrals.Stats(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	link := ""
	if r.BotUsername != "" {
		link = fmt.Sprintf("https://t.me/%s?start=%s%s", r.BotUsername, referralPayloadPrefix, code)
	}
	r.reply(chatID, renderReferral(code, link, stats), nil)
}

type decisionFunc func(ctx context.Context, investmentID uint, adminID int64) (services.ConfirmationResult, error)

func (r *Router) decide(ctx context.Context, chatID, adminID int64, id uint, decide decisionFunc) {
	result, err := decide(ctx, id, adminID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, renderDecision(result), nil)
}

func (r *Router) showPending(ctx context.Context, userID, chatID int64) {
	if !r.Authorizer.IsAdministrator(userID) {
		r.replyError(chatID, services.ErrNotAuthorized)
		return
	}
	pending, err := r.Investments.ListPending(ctx, pendingListLimit)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, renderPending(pending), nil)
}

func (r *Router) showStats(ctx context.Context, userID, chatID int64) {
	stats, err := r.Admin.SystemStatistics(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, renderStats(stats), nil)
}

func (r *Router) showUser(ctx context.Context, adminID, chatID, userID int64) {
	if !r.Authorizer.IsAdministrator(adminID) {
		r.replyError(chatID, services.ErrNotAuthorized)
		return
	}
	user, err := r.Users.GetUserByID(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	summary, err := r.Ledger.Summary(ctx, userID)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, fmt.Sprintf("👤 %s (%d)\nWallet: %s\nTotal invested: %s\n\n%s",
		user.FullName, user.ID, user.WalletAddress, money(user.TotalInvested), renderSummary(summary)), nil)
}

func (r *Router) adjustBalance(ctx context.Context, adminID, chatID int64, d balanceDirective) {
	op, err := services.ParseBalanceOp(d.op)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	balance, err := r.Ledger.AdjustBalance(ctx, adminID, d.userID, d.amount, op)
	if err != nil {
		r.replyError(chatID, err)
		return
	}
	r.reply(chatID, fmt.Sprintf("Balance of user %d is now %s.", d.userID, money(balance)), nil)
}

func (r *Router) issueToken(ctx context.Context, userID, chatID int64) {
	role := auth.RoleInvestor
	if r.Authorizer.IsAdministrator(userID) {
		role = auth.RoleAdmin
	} else {
		user, err := r.Users.GetUserByID(ctx, userID)
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			r.replyError(chatID, err)
			return
		}
		if user == nil || !user.IsRegistered() {
			r.reply(chatID, "Complete registration with /wallet before requesting an API token.", nil)
			return
		}
	}

	token, err := auth.GenerateToken(userID, role)
	if err != nil {
		r.logger.Error("failed to issue token", zap.Int64("user_id", userID), zap.Error(err))
		r.replyError(chatID, err)
		return
	}
	r.logger.Info("api token issued", zap.Int64("user_id", userID), zap.String("role", string(role)))
	r.reply(chatID, fmt.Sprintf("API token (%s, valid %s):\n%s", role, auth.TokenTTL, token), nil)
}
