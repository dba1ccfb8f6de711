package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/telegram/sender"
)

type call struct {
	op     string
	chatID int64
	msgID  string
	text   string
	opts   *tele.SendOptions
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	nextID  int
	editErr error
	sendErr error
}

func (f *fakeAPI) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id, _ := to.(tele.ChatID)
	f.record(call{op: "send", chatID: int64(id), text: what.(string), opts: opts[0].(*tele.SendOptions)})
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	id, chatID := msg.MessageSig()
	f.record(call{op: "edit", chatID: chatID, msgID: id, text: what.(string), opts: opts[0].(*tele.SendOptions)})
	return &tele.Message{}, f.editErr
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	id, chatID := msg.MessageSig()
	f.record(call{op: "delete", chatID: chatID, msgID: id})
	return nil
}

func (f *fakeAPI) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestSendWithButtons(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api, nil)
	id, err := tg.SendTextWithButtons(context.Background(), 42, "<b>hi</b>", [][]Button{
		{{Label: "Москва (2000000)", Payload: "\fst|2000000|Москва"}},
		{},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(42), calls[0].chatID)
	assert.Equal(t, tele.ModeHTML, calls[0].opts.ParseMode)
	kb := calls[0].opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 1)
	assert.Equal(t, "\fst|2000000|Москва", kb[0][0].Data)
}

func TestEditIgnoresUnchangedContent(t *testing.T) {
	api := &fakeAPI{editErr: tele.ErrSameMessageContent}
	tg := NewTelegram(api, nil)
	require.NoError(t, tg.EditText(context.Background(), 42, 7, "same", nil))
	calls := api.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "7", calls[0].msgID)
	assert.Nil(t, calls[0].opts.ReplyMarkup)

	api.editErr = errors.New("boom")
	assert.Error(t, tg.EditText(context.Background(), 42, 7, "x", nil))
}

func TestDeleteGoesThroughDispatcher(t *testing.T) {
	api := &fakeAPI{}
	disp := sender.NewDispatcher(sender.Options{Workers: 1})
	tg := NewTelegram(api, disp)
	require.NoError(t, tg.DeleteMessage(context.Background(), 42, 9))
	disp.Close()

	assert.Eventually(t, func() bool { return len(api.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "delete", api.snapshot()[0].op)
}

func TestNotifyReportsFailure(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("bot was blocked by the user")}
	tg := NewTelegram(api, sender.NewDispatcher(sender.Options{MaxRetries: 0}))
	assert.Error(t, tg.Notify(context.Background(), 42, "alert"))
}
