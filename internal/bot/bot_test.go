package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tripbot/core/telegram"
	"github.com/m3rciful/tripbot/internal/conversation"
	"github.com/m3rciful/tripbot/internal/fleet"
	"github.com/m3rciful/tripbot/internal/storage/memory"
)

type sent struct {
	text   string
	markup *tele.ReplyMarkup
	edited bool
}

// fakeContext records outgoing messages; unused tele.Context methods panic.
type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	out       []sent
	responded []string
}

func newFake(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Message() *tele.Message   { return f.update.Message }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(k string) any         { return f.store[k] }
func (f *fakeContext) Set(k string, v any)      { f.store[k] = v }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}

func (f *fakeContext) record(what any, edited bool, opts []any) {
	s := sent{text: what.(string), edited: edited}
	for _, o := range opts {
		if rm, ok := o.(*tele.ReplyMarkup); ok {
			s.markup = rm
		}
	}
	f.out = append(f.out, s)
}

func (f *fakeContext) Send(what any, opts ...any) error {
	f.record(what, false, opts)
	return nil
}

func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	f.record(what, f.update.Callback != nil, opts)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	text := ""
	if len(resp) > 0 && resp[0] != nil {
		text = resp[0].Text
	}
	f.responded = append(f.responded, text)
	return nil
}

var user = &tele.User{ID: 7}

func message(text string) *fakeContext {
	return newFake(tele.Update{ID: 1, Message: &tele.Message{Text: text, Sender: user, Chat: &tele.Chat{ID: 7}}})
}

func location(lat, lng float32) *fakeContext {
	return newFake(tele.Update{ID: 2, Message: &tele.Message{
		Sender:   user,
		Chat:     &tele.Chat{ID: 7},
		Location: &tele.Location{Lat: lat, Lng: lng},
	}})
}

func button(unique, data string) *fakeContext {
	return newFake(tele.Update{ID: 3, Callback: &tele.Callback{
		Sender: user,
		Unique: unique,
		Data:   data,
	}})
}

func newBot(t *testing.T) (*Bot, *memory.TripLog, *memory.LastReadings, *tg.Registry) {
	t.Helper()
	trips, last := memory.NewTripLog(), memory.NewLastReadings()
	b := New(conversation.New(trips, last), last)
	reg := tg.NewRegistry()
	require.NoError(t, b.Register(reg))
	return b, trips, last, reg
}

func TestRegisterWiresCommandsAndCallbacks(t *testing.T) {
	_, _, _, reg := newBot(t)

	cmds := reg.Commands()
	require.Contains(t, cmds, "/start")
	require.Contains(t, cmds, "/cancel")
	require.True(t, cmds["/kmstand"].AdminOnly)
	require.Len(t, reg.MenuCommands(), 2)

	_, ok := reg.GetCallback(CallbackTruck)
	require.True(t, ok)
	_, ok = reg.GetCallback(CallbackEvent)
	require.True(t, ok)
	require.NotNil(t, reg.TextFallback())
}

func TestMenus(t *testing.T) {
	trucks := TruckMenu().InlineKeyboard
	require.Len(t, trucks, 2)
	require.Equal(t, "LKW 1", trucks[0][0].Text)
	require.Equal(t, CallbackTruck, trucks[0][0].Unique)
	require.Equal(t, "LKW1", trucks[0][0].Data)

	events := EventMenu().InlineKeyboard
	require.Len(t, events, 7)
	require.Equal(t, "fahrt_beenden", events[6][0].Data)

	require.True(t, markupFor(conversation.MarkupRemoveKeyboard).RemoveKeyboard)
	require.Nil(t, markupFor(conversation.MarkupNone))
	loc := markupFor(conversation.MarkupLocationRequest)
	require.True(t, loc.ReplyKeyboard[0][0].Location)
}

func TestConversationOverTelegram(t *testing.T) {
	b, trips, last, reg := newBot(t)

	start := message("/start")
	require.NoError(t, b.onStart(start))
	require.Len(t, start.out, 1)
	require.NotNil(t, start.out[0].markup.InlineKeyboard)

	truckHandler, _ := reg.GetCallback(CallbackTruck)
	pick := button(CallbackTruck, "LKW1")
	require.NoError(t, truckHandler(pick))
	require.Equal(t, []string{""}, pick.responded)
	require.True(t, pick.out[0].edited)
	require.True(t, b.InProgress(7))

	eventHandler, _ := reg.GetCallback(CallbackEvent)
	require.NoError(t, eventHandler(button(CallbackEvent, "fahrt_beenden")))
	require.NoError(t, b.Continue(message("1200")))

	share := location(52.5, 13.4)
	require.NoError(t, b.Continue(share))
	require.True(t, share.out[0].markup.RemoveKeyboard)

	done := message("0")
	require.NoError(t, b.Continue(done))
	require.Contains(t, done.out[0].text, "Fahrt beendet für LKW 1")
	require.False(t, b.InProgress(7))
	require.Equal(t, 1, trips.Count())

	km, ok, err := last.Get(context.Background(), fleet.TruckLKW1)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1200, km)

	kmstand := message("/kmstand")
	require.NoError(t, b.onKMStand(kmstand))
	require.Equal(t, "Letzte Kilometerstände:\nLKW 1: 1200 km\nLKW 2: kein Eintrag", kmstand.out[0].text)
}

func TestLocationKeepsShortCoordinates(t *testing.T) {
	require.Equal(t, 13.4, coord(13.4))
	require.Equal(t, 52.5, coord(52.5))
}

func TestTextOutsideTripHintsStart(t *testing.T) {
	b, _, _, _ := newBot(t)
	c := message("hallo")
	require.NoError(t, b.Continue(c))
	require.Contains(t, c.out[0].text, "/start")
}

func TestRateLimitedCallbackIsAnswered(t *testing.T) {
	c := button(CallbackEvent, "laden")
	require.NoError(t, OnRateLimited(c))
	require.Equal(t, []string{textSlowDown}, c.responded)
	require.Empty(t, c.out)
}

func TestLocationStepAnswersOtherMessages(t *testing.T) {
	b, _, _, reg := newBot(t)
	require.NoError(t, b.onStart(message("/start")))
	truckHandler, _ := reg.GetCallback(CallbackTruck)
	require.NoError(t, truckHandler(button(CallbackTruck, "LKW2")))
	eventHandler, _ := reg.GetCallback(CallbackEvent)
	require.NoError(t, eventHandler(button(CallbackEvent, "laden")))
	require.NoError(t, b.Continue(message("500")))

	photo := newFake(tele.Update{ID: 4, Message: &tele.Message{Photo: &tele.Photo{}, Sender: user, Chat: &tele.Chat{ID: 7}}})
	require.NoError(t, b.Continue(photo))
	require.Len(t, photo.out, 1)
	require.True(t, photo.out[0].markup.ReplyKeyboard[0][0].Location)

	s, ok := b.ctrl.Session(7)
	require.True(t, ok)
	require.Equal(t, conversation.AwaitingLocation, s.State)

	venue := newFake(tele.Update{ID: 5, Message: &tele.Message{
		Sender: user,
		Chat:   &tele.Chat{ID: 7},
		Venue:  &tele.Venue{Location: tele.Location{Lat: 48.1, Lng: 11.6}, Title: "Rasthof"},
	}})
	require.NoError(t, b.Continue(venue))
	s, _ = b.ctrl.Session(7)
	require.Equal(t, conversation.AwaitingWeight, s.State)
	require.Equal(t, 48.1, s.Location.Lat)
}
