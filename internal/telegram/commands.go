package telegram

import (
	"strconv"
	"strings"

	"investment-bot/internal/notify"
	"investment-bot/internal/workflow"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/shopspring/decimal"
)

const referralPayloadPrefix = "ref_"

type command struct {
	name string
	args []string
}

// parseCommand splits "/name@bot arg1 arg2". The leading slash is dropped
// and the name is lowercased.
func parseCommand(text string) (command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) < 2 {
		return command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return command{name: strings.ToLower(name), args: fields[1:]}, true
}

// parseIDSuffix reads the numeric id after prefix, e.g. confirm_invest_12
func parseIDSuffix(name, prefix string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

var (
	confirmPrefix = strings.TrimPrefix(notify.ConfirmDirectivePrefix, "/")
	rejectPrefix  = strings.TrimPrefix(notify.RejectDirectivePrefix, "/")
	userPrefix    = strings.TrimPrefix(notify.UserDirectivePrefix, "/")
)

type balanceDirective struct {
	userID int64
	op     string
	amount decimal.Decimal
}

// parseBalanceDirective reads balance_{uid}_{op}_{amount}
func parseBalanceDirective(name string) (balanceDirective, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 4 || parts[0] != "balance" {
		return balanceDirective{}, false
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return balanceDirective{}, false
	}
	amount, err := decimal.NewFromString(parts[3])
	if err != nil {
		return balanceDirective{}, false
	}
	return balanceDirective{userID: uid, op: parts[2], amount: amount}, true
}

// referralCode extracts CODE from a /start ref_CODE payload
func referralCode(args []string) (string, bool) {
	if len(args) == 0 || !strings.HasPrefix(args[0], referralPayloadPrefix) {
		return "", false
	}
	code := strings.TrimPrefix(args[0], referralPayloadPrefix)
	return code, code != ""
}

// workflowInput maps a message received mid-flow to an engine input
func workflowInput(msg *gotgbot.Message) workflow.Input {
	in := workflow.Input{ChatID: msg.Chat.Id, MessageID: msg.MessageId}
	switch {
	case len(msg.Photo) > 0:
		in.Action = workflow.ActionPhoto
		in.FileID = msg.Photo[len(msg.Photo)-1].FileId
		return in
	case msg.Document != nil:
		in.Action = workflow.ActionDocument
		in.FileID = msg.Document.FileId
		return in
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case ButtonAccept:
		in.Action = workflow.ActionAccept
	case ButtonCancel:
		in.Action = workflow.ActionCancel
	case ButtonAgree:
		in.Action = workflow.ActionAgree
	case ButtonDisagree:
		in.Action = workflow.ActionDisagree
	case ButtonPaid:
		in.Action = workflow.ActionProceed
	case ButtonSkipProof:
		in.Action = workflow.ActionSkipEvidence
	default:
		in.Action = workflow.ActionText
		in.Text = text
	}
	return in
}
