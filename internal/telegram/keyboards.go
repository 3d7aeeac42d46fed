package telegram

import (
	"github.com/PaulSonOfLars/gotgbot/v2"
)

// Reply keyboard button labels. Incoming text equal to a label is treated
// as a button press.
const (
	ButtonInvest      = "💰 Invest"
	ButtonInvestments = "📊 My investments"
	ButtonBalance     = "💵 Balance & profit"
	ButtonReferrals   = "👥 Referrals"

	ButtonAccept    = "✅ Accept"
	ButtonCancel    = "❌ Cancel"
	ButtonAgree     = "✅ I agree"
	ButtonDisagree  = "❌ I disagree"
	ButtonPaid      = "➡️ I have paid"
	ButtonSkipProof = "⏭ Skip"
)

func keyboard(rows ...[]string) gotgbot.ReplyKeyboardMarkup {
	markup := gotgbot.ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]gotgbot.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, gotgbot.KeyboardButton{Text: label})
		}
		markup.Keyboard = append(markup.Keyboard, buttons)
	}
	return markup
}

func mainMenu() gotgbot.ReplyKeyboardMarkup {
	return keyboard(
		[]string{ButtonInvest},
		[]string{ButtonInvestments, ButtonBalance},
		[]string{ButtonReferrals},
	)
}

func cancelOnly() gotgbot.ReplyKeyboardMarkup {
	return keyboard([]string{ButtonCancel})
}

func quoteKeyboard() gotgbot.ReplyKeyboardMarkup {
	return keyboard([]string{ButtonAccept, ButtonCancel})
}

func termsKeyboard() gotgbot.ReplyKeyboardMarkup {
	return keyboard([]string{ButtonAgree, ButtonDisagree})
}

func paymentKeyboard() gotgbot.ReplyKeyboardMarkup {
	return keyboard([]string{ButtonPaid}, []string{ButtonCancel})
}

func evidenceKeyboard() gotgbot.ReplyKeyboardMarkup {
	return keyboard([]string{ButtonSkipProof}, []string{ButtonCancel})
}
