package telegram

import (
	"errors"
	"testing"
	"time"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	})
	wh, ok := p.(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("webhook poller = %#v", p)
	}

	lp, ok := BuildPoller(PollerOptions{RunMode: coreconfig.RunModeLongpoll}).(*tele.LongPoller)
	if !ok || lp.Timeout != defaultLongPollTimeout {
		t.Fatalf("long poller = %#v", lp)
	}
	lp = BuildPoller(PollerOptions{LongPollTimeoutSeconds: 30}).(*tele.LongPoller)
	if lp.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", lp.Timeout)
	}
}

func TestRegistryHidesAdminCommandsFromMenu(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Текущие задержки"})
	reg.RegisterCommand("/add", commands.Command{Handler: noop, Description: "Добавить", AdminOnly: true})
	reg.RegisterCommand("list", commands.Command{Handler: noop, Description: "no slash"})

	public := reg.ListCommands(true)
	if len(public) != 1 || public[0].Text != "/start" {
		t.Fatalf("public = %+v", public)
	}
	if len(reg.ListCommands(false)) != 2 {
		t.Fatalf("all = %+v", reg.ListCommands(false))
	}
	if key, _, ok := reg.LookupCommand("add"); !ok || key != "/add" {
		t.Fatalf("lookup = %q, %v", key, ok)
	}
}

func TestRegistryRejectsDuplicateCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("direction", noop); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	if err := reg.RegisterCallback("direction", noop); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, ok := reg.GetCallback("direction"); !ok {
		t.Fatal("callback not found")
	}
}

type menuRecorder struct {
	got []interface{}
	err error
}

func (m *menuRecorder) SetCommands(opts ...interface{}) error {
	m.got = opts
	return m.err
}

func TestInitBotCommandsPublishesPublicList(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Текущие задержки"})
	rec := &menuRecorder{err: errors.New("unauthorized")}
	InitBotCommands(rec, reg)
	if len(rec.got) != 1 {
		t.Fatalf("SetCommands args = %+v", rec.got)
	}
	list, ok := rec.got[0].([]tele.Command)
	if !ok || len(list) != 1 {
		t.Fatalf("commands = %#v", rec.got[0])
	}
}

func TestDefaultMiddlewares(t *testing.T) {
	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	names := []string{}
	for _, mw := range DefaultMiddlewares(cfg, nil) {
		names = append(names, mw.Name)
	}
	want := []string{"recover", "rate_limit", "logger", "metrics"}
	if len(names) != len(want) {
		t.Fatalf("middlewares = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("middlewares = %v", names)
		}
	}
}
