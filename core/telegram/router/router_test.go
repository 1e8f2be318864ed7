package router

import (
	"errors"
	"testing"

	tg "github.com/serikovn/nexpr-update/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	upd       tele.Update
	store     map[string]interface{}
	responses int
}

func newText(userID int64, text string) *fakeContext {
	u := &tele.User{ID: userID}
	return &fakeContext{
		upd:   tele.Update{ID: 7, Message: &tele.Message{Sender: u, Chat: &tele.Chat{ID: userID}, Text: text}},
		store: map[string]interface{}{},
	}
}

func newCallback(userID int64, data string) *fakeContext {
	c := newText(userID, "")
	c.upd.Callback = &tele.Callback{Sender: c.upd.Message.Sender, Data: data, Message: c.upd.Message}
	return c
}

func (f *fakeContext) Update() tele.Update        { return f.upd }
func (f *fakeContext) Sender() *tele.User         { return f.upd.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat           { return f.upd.Message.Chat }
func (f *fakeContext) Callback() *tele.Callback   { return f.upd.Callback }
func (f *fakeContext) Text() string               { return f.upd.Message.Text }
func (f *fakeContext) Get(key string) interface{} { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) {
	f.store[key] = v
}
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responses++
	return nil
}

type fakeFSM struct {
	open  map[int64]bool
	texts []string
}

func (f *fakeFSM) InProgress(id int64) bool { return f.open[id] }
func (f *fakeFSM) ManagerHandler(c tele.Context) error {
	f.texts = append(f.texts, c.Text())
	return nil
}

func TestTextRoutesPreferOpenConversation(t *testing.T) {
	fsm := &fakeFSM{open: map[int64]bool{1: true}}
	fallbacks := 0
	reg := tg.NewRegistry()
	reg.SetTextFallback(func(tele.Context) error { fallbacks++; return nil })

	routes := TextRoutes(fsm, reg, TextOptions{})
	if len(routes) != 3 {
		t.Fatalf("routes = %d, want text, photo and video", len(routes))
	}
	text := routes[0].Handler
	if err := text(newText(1, "Route A")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if err := text(newText(2, "hello")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(fsm.texts) != 1 || fsm.texts[0] != "Route A" || fallbacks != 1 {
		t.Fatalf("fsm = %v, fallbacks = %d", fsm.texts, fallbacks)
	}

	photo := routes[1].Handler
	_ = photo(newText(2, ""))
	if len(fsm.texts) != 1 {
		t.Fatal("media from a user without a session must be dropped")
	}
	_ = photo(newText(1, ""))
	if len(fsm.texts) != 2 {
		t.Fatal("media from an open session must reach the fsm")
	}
}

func TestCallbackRouteDispatchesByAction(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	if err := reg.RegisterCallback("remove", func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	}); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	route := CallbackRoute(reg, CallbackOptions{})

	c := newCallback(1, "remove_Route_B")
	if err := route.Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got != "remove_Route_B" {
		t.Fatalf("handler saw %q", got)
	}
	if c.responses != 1 {
		t.Fatalf("responses = %d, want one silent acknowledgement", c.responses)
	}

	unknown := newCallback(1, "launch_rocket")
	_ = route.Handler(unknown)
	if unknown.responses != 1 {
		t.Fatalf("unknown callback responses = %d", unknown.responses)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "denied" }
func (codedErr) Code() string  { return "access denied" }

func TestDeriveErrorCode(t *testing.T) {
	if got := deriveErrorCode(codedErr{}); got != "ACCESS_DENIED" {
		t.Fatalf("coded = %q", got)
	}
	if got := deriveErrorCode(errors.New("x")); got != "ERRORSTRING" {
		t.Fatalf("plain = %q", got)
	}
	if deriveErrorCode(nil) != "" {
		t.Fatal("nil error has no code")
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Start":    "start",
		" remove ":  "remove",
		"":          "unknown",
		"fsm media": "fsm_media",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
