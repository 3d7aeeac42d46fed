package telegram

import (
	"fmt"
	"strings"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/notify"
	"investment-bot/internal/services"
	"investment-bot/internal/workflow"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func percent(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0) + "%"
	}
	return d.StringFixed(2) + "%"
}

func quoteLines(q *services.Quote) string {
	if q == nil {
		return ""
	}
	return fmt.Sprintf(
		"Amount: %s\nAnnual rate: %s\nMonthly rate: %s\nMonthly profit: %s",
		money(q.Amount), percent(q.AnnualRate), percent(q.MonthlyRate), money(q.MonthlyProfit),
	)
}

func stepKeyboard(step workflow.Step) gotgbot.ReplyKeyboardMarkup {
	switch step {
	case workflow.StepAwaitingAmount:
		return cancelOnly()
	case workflow.StepAwaitingConfirmation:
		return quoteKeyboard()
	case workflow.StepAwaitingTerms:
		return termsKeyboard()
	case workflow.StepAwaitingPayment:
		return paymentKeyboard()
	case workflow.StepAwaitingEvidence:
		return evidenceKeyboard()
	}
	return mainMenu()
}

// RenderPrompt turns a workflow prompt into message text and a keyboard
func RenderPrompt(p workflow.Prompt) (string, gotgbot.ReplyKeyboardMarkup) {
	switch p.Kind {
	case workflow.PromptEnterAmount:
		return fmt.Sprintf("How much would you like to invest?\nMinimum investment is %s.", money(p.Minimum)), cancelOnly()
	case workflow.PromptInvalidAmount:
		return fmt.Sprintf("That amount can't be used (%s).\nPlease enter a number of at least %s.", p.Reason, money(p.Minimum)), cancelOnly()
	case workflow.PromptConfirmQuote:
		return "Here are your terms:\n\n" + quoteLines(p.Quote) + "\n\nAccept to continue.", quoteKeyboard()
	case workflow.PromptTerms:
		return "Terms of investment:\n\n" +
			"1. Profit accrues monthly from the day your deposit is confirmed.\n" +
			"2. Rates are fixed for the life of the investment.\n" +
			"3. Deposits are confirmed manually after the payment is verified.\n\n" +
			"Do you agree?", termsKeyboard()
	case workflow.PromptPayment:
		amount := "the amount"
		if p.Quote != nil {
			amount = money(p.Quote.Amount)
		}
		return fmt.Sprintf(
			"Send %s to the wallet below, then press \"%s\".\n\n%s",
			amount, ButtonPaid, p.PaymentAddress,
		), paymentKeyboard()
	case workflow.PromptEvidence:
		return "Send the transaction hash, a screenshot or a document as proof of payment.\nYou can also skip this step.", evidenceKeyboard()
	case workflow.PromptInvalidEvidence:
		return "Please send a transaction hash, a photo or a document, or press skip.", evidenceKeyboard()
	case workflow.PromptSubmitted:
		id := uint(0)
		if p.Investment != nil {
			id = p.Investment.ID
		}
		return fmt.Sprintf(
			"Your investment request #%d has been submitted.\n\n%s\n\nStatus: pending. You will be notified once it is reviewed.",
			id, quoteLines(p.Quote),
		), mainMenu()
	case workflow.PromptCancelled:
		return "Investment cancelled.", mainMenu()
	case workflow.PromptUnexpected:
		text := "Please use the buttons below."
		if p.Step == workflow.StepAwaitingPayment {
			text = fmt.Sprintf("Please send the payment to:\n%s\nthen press \"%s\".", p.PaymentAddress, ButtonPaid)
		}
		return text, stepKeyboard(p.Step)
	case workflow.PromptNeedsRegistration:
		return "Please finish registration first.\nSend /wallet followed by your payout address (starting with 0x).", mainMenu()
	case workflow.PromptNoSession:
		return "There is nothing in progress. Choose an option from the menu.", mainMenu()
	}
	return "Something went wrong. Please try again in a moment.", stepKeyboard(p.Step)
}

// RenderPayload formats a notification for a chat
func RenderPayload(p notify.Payload) string {
	switch p.Kind {
	case notify.KindInvestmentSubmitted:
		var b strings.Builder
		fmt.Fprintf(&b, "🆕 New investment request #%d\n\n", p.InvestmentID)
		fmt.Fprintf(&b, "User: %s (%d)\n", p.UserName, p.UserID)
		fmt.Fprintf(&b, "Amount: %s\n", money(p.Amount))
		fmt.Fprintf(&b, "Annual rate: %s\n", percent(p.AnnualRate))
		fmt.Fprintf(&b, "Monthly rate: %s\n", percent(p.MonthlyRate))
		fmt.Fprintf(&b, "Monthly profit: %s\n", money(p.MonthlyProfit))
		fmt.Fprintf(&b, "Wallet: %s\n", p.WalletExcerpt)
		fmt.Fprintf(&b, "Evidence (%s): %s\n", p.EvidenceKind, p.EvidenceDisplay)
		if !p.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "Submitted: %s\n", p.CreatedAt.UTC().Format(time.RFC822))
		}
		if len(p.Directives) > 0 {
			b.WriteString("\n" + strings.Join(p.Directives, "\n"))
		}
		return b.String()
	case notify.KindInvestmentConfirmed:
		start := "today"
		if p.StartDate != nil {
			start = p.StartDate.Format(dateLayout)
		}
		return fmt.Sprintf(
			"✅ Your investment #%d of %s is now active (since %s).\nMonthly profit: %s",
			p.InvestmentID, money(p.Amount), start, money(p.MonthlyProfit),
		)
	case notify.KindInvestmentRejected:
		return fmt.Sprintf(
			"❌ Your investment #%d of %s was rejected.\nContact support if you believe this is a mistake.",
			p.InvestmentID, money(p.Amount),
		)
	case notify.KindEvidenceForward:
		return fmt.Sprintf("📎 Payment proof from user %d (%s)\n%s", p.UserID, p.EvidenceKind, p.EvidenceDisplay)
	case notify.KindReferralJoined:
		return fmt.Sprintf("🎉 %s joined using your invite link.", p.UserName)
	}
	return fmt.Sprintf("Notification: %s", p.Kind)
}

func renderSummary(s *services.LedgerSummary) string {
	return fmt.Sprintf(
		"💵 Balance: %s\n\nActive investments: %d\nActive principal: %s\nMonthly profit: %s\nDaily equivalent: %s",
		money(s.Balance), s.ActiveCount, money(s.ActivePrincipal), money(s.MonthlyEntitlement), money(s.DailyEquivalent),
	)
}

func renderInvestments(investments []models.Investment) string {
	if len(investments) == 0 {
		return "You have no investments yet."
	}
	var b strings.Builder
	b.WriteString("📊 Your investments\n")
	for _, inv := range investments {
		fmt.Fprintf(&b, "\n#%d %s at %s yearly, %s", inv.ID, money(inv.Amount), percent(inv.AnnualRate), inv.Status)
		if inv.StartDate != nil {
			fmt.Fprintf(&b, " since %s", inv.StartDate.Format(dateLayout))
		}
	}
	return b.String()
}

func renderPending(investments []models.Investment) string {
	if len(investments) == 0 {
		return "No pending investments."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏳ %d pending investments\n", len(investments))
	for _, inv := range investments {
		fmt.Fprintf(&b, "\n#%d user %d %s  %s%d %s%d",
			inv.ID, inv.UserID, money(inv.Amount),
			notify.ConfirmDirectivePrefix, inv.ID, notify.RejectDirectivePrefix, inv.ID)
	}
	return b.String()
}

func renderStats(s *models.SystemStatistics) string {
	return fmt.Sprintf(
		"📈 Statistics\n\nUsers: %d (registered %d)\nInvestments: %d\nPending: %d\nActive: %d\nRejected: %d\n"+
			"Active principal: %s\nMonthly entitlement: %s\nUser balances: %s\nReferrals: %d",
		s.TotalUsers, s.RegisteredUsers, s.TotalInvestments, s.PendingInvestments, s.ActiveInvestments,
		s.RejectedInvestments, money(s.ActivePrincipal), money(s.MonthlyEntitlement), money(s.TotalBalances),
		s.TotalReferrals,
	)
}

func renderReferral(code, link string, stats *models.ReferralStats) string {
	text := fmt.Sprintf("👥 Your invite code: %s\n", code)
	if link != "" {
		text += fmt.Sprintf("Invite link: %s\n", link)
	}
	return text + fmt.Sprintf(
		"\nInvited: %d\nInvesting: %d\nTotal invested by your referrals: %s",
		stats.TotalReferrals, stats.ActiveReferrals, money(stats.TotalInvested),
	)
}

func renderDecision(result services.ConfirmationResult) string {
	inv := result.Investment
	if result.Outcome == services.OutcomeNoop {
		return fmt.Sprintf("Investment #%d was already %s. Nothing changed.", inv.ID, inv.Status)
	}
	return fmt.Sprintf("Investment #%d of %s for user %d is now %s.", inv.ID, money(inv.Amount), inv.UserID, inv.Status)
}
