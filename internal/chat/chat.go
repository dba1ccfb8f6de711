// Package chat sends, edits and deletes Telegram messages on behalf of the
// search flow and the monitor, routing every call through the sender
// dispatcher so retries and flood control apply uniformly.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/telegram/keyboard"
	"github.com/m3rciful/seatwatch/core/telegram/sender"
)

// Button is an inline button; Payload is the encoded callback data.
type Button struct {
	Label   string
	Payload string
}

// API is the subset of *tele.Bot the transport needs.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Telegram implements the chat transport on top of telebot.
type Telegram struct {
	api  API
	disp *sender.Dispatcher
}

// NewTelegram returns a transport. A nil dispatcher runs every call inline without retries.
func NewTelegram(api API, disp *sender.Dispatcher) *Telegram {
	return &Telegram{api: api, disp: disp}
}

func htmlOptions(rows [][]Button) *tele.SendOptions {
	return &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           markup(rows),
	}
}

func markup(rows [][]Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Data: b.Payload})
		}
		kb = append(kb, r)
	}
	return keyboard.InlineButtonsRows(kb...)
}

func (t *Telegram) do(ctx context.Context, action, endpoint string, run func() error) error {
	if t.disp == nil {
		return run()
	}
	return t.disp.Do(ctx, action, endpoint, run)
}

// SendText sends an HTML message and returns its id.
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	return t.SendTextWithButtons(ctx, chatID, text, nil)
}

// SendTextWithButtons sends an HTML message with an inline keyboard and returns its id.
func (t *Telegram) SendTextWithButtons(ctx context.Context, chatID int64, text string, rows [][]Button) (int, error) {
	var id int
	err := t.do(ctx, "chat.send", "sendMessage", func() error {
		msg, err := t.api.Send(tele.ChatID(chatID), text, htmlOptions(rows))
		if err != nil {
			return err
		}
		id = msg.ID
		return nil
	})
	return id, err
}

// EditText replaces the text and keyboard of a message. An unchanged message is not an error.
func (t *Telegram) EditText(ctx context.Context, chatID int64, msgID int, text string, rows [][]Button) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
	err := t.do(ctx, "chat.edit", "editMessageText", func() error {
		_, err := t.api.Edit(ref, text, htmlOptions(rows))
		return err
	})
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

// DeleteMessage removes a message in the background. Only enqueue failures are returned.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, msgID int) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: chatID}
	run := func() error { return t.api.Delete(ref) }
	if t.disp == nil {
		return run()
	}
	err := t.disp.Enqueue(ctx, "chat.delete", "deleteMessage", run)
	if errors.Is(err, sender.ErrQueueFull) {
		logger.Warn(ctx, logger.CompSender, "queue.fallback",
			slog.String("action", "chat.delete"), logger.Err(err))
		return run()
	}
	return err
}

// Notify sends an alert to the user's private chat and reports whether it was delivered.
func (t *Telegram) Notify(ctx context.Context, userID int64, text string) error {
	_, err := t.SendText(ctx, userID, text)
	return err
}
