// Package express implements the Night Express bot behaviour: the public
// route board, the admin add/remove/list/resolve flows and per-route
// resolution subscriptions. It talks to users only through Messenger.
package express

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
	"github.com/serikovn/nexpr-update/core/telegram/helpers"
	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/notify"
	"github.com/serikovn/nexpr-update/internal/wizard"
)

const component = "service.express"

// Broadcast kinds.
const (
	KindNewProblem = "new_problem"
	KindResolved   = "resolved"
)

// ErrForbidden is returned after a non-admin was told they lack permission.
var ErrForbidden = errors.New("express: admin only")

// ProblemRepository is the problem collection.
type ProblemRepository interface {
	List(ctx context.Context) ([]disruption.Problem, error)
	Find(ctx context.Context, name string) (disruption.Problem, error)
	Add(ctx context.Context, p disruption.Problem) error
	Remove(ctx context.Context, name string) (int, error)
}

// SubscriberRepository is the per-route subscriber index.
type SubscriberRepository interface {
	Subscribers(ctx context.Context, route string) ([]int64, error)
	IsSubscribed(ctx context.Context, route string, user int64) (bool, error)
	Subscribe(ctx context.Context, route string, user int64) (bool, error)
	Unsubscribe(ctx context.Context, route string, user int64) (bool, error)
	Drop(ctx context.Context, route string) error
}

// UserRepository is the broadcast audience.
type UserRepository interface {
	All(ctx context.Context) ([]int64, error)
	Register(ctx context.Context, id int64) (bool, error)
}

// Admins decides who may publish and resolve problems.
type Admins interface {
	IsAdmin(id int64) bool
}

// Messenger is the outbound side of the transport.
type Messenger interface {
	notify.Deliverer
	Send(ctx context.Context, chatID int64, text string, menu Menu) error
	SendAlbum(ctx context.Context, chatID int64, media []disruption.MediaRef) error
}

// Peer identifies who triggered an update and where replies go.
type Peer struct {
	UserID int64
	ChatID int64
}

// Options wires a Service. Now and Location default to time.Now and UTC.
type Options struct {
	Problems    ProblemRepository
	Subscribers SubscriberRepository
	Users       UserRepository
	Sessions    wizard.Sessions
	Admins      Admins
	Messenger   Messenger
	Now         func() time.Time
	Location    *time.Location
}

// Service holds the bot behaviour. It keeps no state of its own; every
// operation reloads what it needs from the repositories.
type Service struct {
	problems    ProblemRepository
	subscribers SubscriberRepository
	users       UserRepository
	sessions    wizard.Sessions
	admins      Admins
	out         Messenger
	now         func() time.Time
	loc         *time.Location
}

// New builds a Service from opts.
func New(opts Options) *Service {
	s := &Service{
		problems:    opts.Problems,
		subscribers: opts.Subscribers,
		users:       opts.Users,
		sessions:    opts.Sessions,
		admins:      opts.Admins,
		out:         opts.Messenger,
		now:         opts.Now,
		loc:         opts.Location,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// IsAdmin reports whether id is on the allow-list.
func (s *Service) IsAdmin(id int64) bool {
	return s.admins != nil && s.admins.IsAdmin(id)
}

// InProgress reports whether id has an open add wizard.
func (s *Service) InProgress(id int64) bool {
	_, ok := s.sessions.Get(id)
	return ok
}

// Start registers the caller and shows today's board: either a
// normal-operation line or a menu of affected routes.
func (s *Service) Start(ctx context.Context, p Peer) error {
	added, err := s.users.Register(ctx, p.UserID)
	switch {
	case err != nil:
		logger.Warn(ctx, component, "user.register",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	case added:
		logger.Info(ctx, component, "user.register", slog.String("status", "ok"))
	}

	problems, err := s.problems.List(ctx)
	if err != nil {
		return s.storeFailure(ctx, p, "start", err)
	}
	date := helpers.FormatDateRU(s.now(), s.loc)
	if len(problems) == 0 {
		return s.out.Send(ctx, p.ChatID, textNormalOperation(date), nil)
	}
	menu := routeMenu(ActionDirection, func(n string) string { return n }, names(problems))
	return s.sendMenu(ctx, p.ChatID, textDelays(date), menu)
}

// ShowRoute sends the route's media album, then its detail text with a
// subscription toggle. When the route is gone it returns a short notice
// meant for the callback acknowledgement and sends nothing.
func (s *Service) ShowRoute(ctx context.Context, p Peer, route string) (string, error) {
	problem, err := s.problems.Find(ctx, route)
	if errors.Is(err, disruption.ErrNotFound) {
		return textRouteGone, nil
	}
	if err != nil {
		return "", s.storeFailure(ctx, p, "route.view", err)
	}

	if len(problem.Media) > 0 {
		if err := s.out.SendAlbum(ctx, p.ChatID, problem.Media); err != nil {
			logger.Warn(ctx, component, "route.album",
				slog.String("status", "fail"),
				slog.String("route", route),
				slog.Int("media", len(problem.Media)),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}

	subscribed, err := s.subscribers.IsSubscribed(ctx, route, p.UserID)
	if err != nil {
		logger.Warn(ctx, component, "route.subscription",
			slog.String("status", "fail"),
			slog.String("route", route),
			slog.String("err", err.Error()),
		)
	}
	return "", s.sendMenu(ctx, p.ChatID, RouteText(problem), SubscriptionMenu(route, subscribed))
}

// Toggle is the outcome of a subscribe or unsubscribe press. Menu replaces
// the pressed control; Notice acknowledges the press.
type Toggle struct {
	Subscribed bool
	Changed    bool
	Menu       Menu
	Notice     string
}

// SetSubscription makes the caller's membership for route equal to want.
// Repeating the same action is a no-op. Subscribing to a route that has
// no open problem is refused with a notice.
func (s *Service) SetSubscription(ctx context.Context, p Peer, route string, want bool) (Toggle, error) {
	var (
		changed bool
		err     error
	)
	if want {
		if _, err := s.problems.Find(ctx, route); err != nil {
			if errors.Is(err, disruption.ErrNotFound) {
				return Toggle{Notice: textRouteGone}, nil
			}
			return Toggle{}, fmt.Errorf("find route %q: %w", route, err)
		}
		changed, err = s.subscribers.Subscribe(ctx, route, p.UserID)
	} else {
		changed, err = s.subscribers.Unsubscribe(ctx, route, p.UserID)
	}
	if err != nil {
		return Toggle{}, fmt.Errorf("toggle subscription %q: %w", route, err)
	}

	logger.Info(ctx, component, "subscription.toggle",
		slog.String("status", "ok"),
		slog.String("route", route),
		slog.Bool("subscribed", want),
		slog.Bool("changed", changed),
	)
	notice := textUnsubscribed
	if want {
		notice = textSubscribed
	}
	return Toggle{
		Subscribed: want,
		Changed:    changed,
		Menu:       SubscriptionMenu(route, want),
		Notice:     notice,
	}, nil
}

// BeginAdd opens a fresh add wizard for an admin, replacing any open one.
func (s *Service) BeginAdd(ctx context.Context, p Peer) error {
	if err := s.requireAdmin(ctx, p); err != nil {
		return err
	}
	if prev, ok := s.sessions.Get(p.UserID); ok {
		logger.Info(ctx, component, "wizard.restart",
			slog.String("step", wizard.StepName(prev)),
		)
	}
	step := wizard.Start()
	s.sessions.Set(p.UserID, step)
	return s.out.Send(ctx, p.ChatID, textPrompt(step), nil)
}

// HandleText feeds free text into the caller's wizard. Commands, non-admins
// and admins without an open wizard are ignored.
func (s *Service) HandleText(ctx context.Context, p Peer, text string) error {
	if strings.HasPrefix(text, "/") {
		return nil
	}
	return s.advance(ctx, p, wizard.Text{Body: text})
}

// HandleMedia feeds a forwarded photo or video into the caller's wizard.
func (s *Service) HandleMedia(ctx context.Context, p Peer, ref disruption.MediaRef) error {
	return s.advance(ctx, p, wizard.Attachment{Media: ref})
}

func (s *Service) advance(ctx context.Context, p Peer, in wizard.Input) error {
	if !s.IsAdmin(p.UserID) {
		return nil
	}
	step, ok := s.sessions.Get(p.UserID)
	if !ok {
		return nil
	}

	res := wizard.Advance(step, in)
	logger.Debug(ctx, component, "wizard.step",
		slog.String("step", wizard.StepName(step)),
		slog.String("outcome", res.Outcome.String()),
	)

	switch res.Outcome {
	case wizard.Advanced:
		s.sessions.Set(p.UserID, res.Next)
		prompt := textPrompt(res.Next)
		if next, ok := res.Next.(wizard.CollectingDescription); ok && !nameFits(next.Name) {
			logger.Warn(ctx, component, "wizard.name_too_long",
				slog.String("route", logger.SanitizeLimit(next.Name, 128)),
				slog.Int("bytes", len(next.Name)),
			)
			prompt = textNameTooLong + "\n\n" + prompt
		}
		return s.out.Send(ctx, p.ChatID, prompt, nil)
	case wizard.MediaAdded:
		s.sessions.Set(p.UserID, res.Next)
		return s.out.Send(ctx, p.ChatID, textMediaAdded(res.Media), nil)
	case wizard.Rejected:
		return s.out.Send(ctx, p.ChatID, textRejectedMedia, nil)
	case wizard.Committed:
		return s.commit(ctx, p, res.Problem)
	}
	return nil
}

// commit persists the problem, closes the session and announces it to every
// registered user except the author. A failed save keeps the session open
// so the admin can send the terminator again.
func (s *Service) commit(ctx context.Context, p Peer, problem disruption.Problem) error {
	if err := s.problems.Add(ctx, problem); err != nil {
		logger.Error(ctx, component, "problem.add",
			slog.String("status", "fail"),
			slog.String("route", problem.Name),
			slog.String("err", err.Error()),
		)
		if sendErr := s.out.Send(ctx, p.ChatID, textAddFailed(problem.Name), nil); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return fmt.Errorf("add problem %q: %w", problem.Name, err)
	}
	s.sessions.Delete(p.UserID)
	logger.Info(ctx, component, "problem.add",
		slog.String("status", "ok"),
		slog.String("route", problem.Name),
		slog.Int("media", len(problem.Media)),
	)

	users, err := s.users.All(ctx)
	if err != nil {
		logger.Warn(ctx, component, "problem.broadcast",
			slog.String("status", "fail"),
			slog.String("route", problem.Name),
			slog.String("err", err.Error()),
		)
	}
	res := notify.Broadcast(ctx, s.out, KindNewProblem, notify.Exclude(users, p.UserID), NewProblemNotice(problem))
	return s.out.Send(ctx, p.ChatID, textAdded(problem.Name, res.Recipients), nil)
}

// RemoveMenu lists every problem as a removal button.
func (s *Service) RemoveMenu(ctx context.Context, p Peer) error {
	if err := s.requireAdmin(ctx, p); err != nil {
		return err
	}
	problems, err := s.problems.List(ctx)
	if err != nil {
		return s.storeFailure(ctx, p, "remove.menu", err)
	}
	if len(problems) == 0 {
		return s.out.Send(ctx, p.ChatID, textNothingRemove, nil)
	}
	menu := routeMenu(ActionRemove, func(n string) string { return "Удалить: " + n }, names(problems))
	return s.sendMenu(ctx, p.ChatID, textChooseRemove, menu)
}

// Remove deletes every problem named route. Subscribers are left in place.
func (s *Service) Remove(ctx context.Context, p Peer, route string) error {
	if err := s.requireAdmin(ctx, p); err != nil {
		return err
	}
	n, err := s.problems.Remove(ctx, route)
	if err != nil {
		return s.storeFailure(ctx, p, "problem.remove", err)
	}
	if n == 0 {
		logger.Info(ctx, component, "problem.remove",
			slog.String("status", "skip"),
			slog.String("route", route),
			slog.String("reason", "not_found"),
		)
		return s.out.Send(ctx, p.ChatID, textNotFound(route), nil)
	}
	logger.Info(ctx, component, "problem.remove",
		slog.String("status", "ok"),
		slog.String("route", route),
		slog.Int("count", n),
	)
	return s.out.Send(ctx, p.ChatID, textRemoved(route), nil)
}

// List sends the admin a numbered dump of every problem.
func (s *Service) List(ctx context.Context, p Peer) error {
	if err := s.requireAdmin(ctx, p); err != nil {
		return err
	}
	problems, err := s.problems.List(ctx)
	if err != nil {
		return s.storeFailure(ctx, p, "problem.list", err)
	}
	if len(problems) == 0 {
		return s.out.Send(ctx, p.ChatID, textListEmpty, nil)
	}
	return s.out.Send(ctx, p.ChatID, textList(problems), nil)
}

// Resolve notifies the route's subscribers, forgets them and removes the
// problem. The returned result describes the broadcast.
func (s *Service) Resolve(ctx context.Context, p Peer, route string) (notify.Result, error) {
	if err := s.requireAdmin(ctx, p); err != nil {
		return notify.Result{}, err
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return notify.Result{}, s.out.Send(ctx, p.ChatID, textResolveUsage, nil)
	}

	if _, err := s.problems.Find(ctx, route); err != nil {
		if errors.Is(err, disruption.ErrNotFound) {
			return notify.Result{}, s.out.Send(ctx, p.ChatID, textNotFound(route), nil)
		}
		return notify.Result{}, s.storeFailure(ctx, p, "problem.resolve", err)
	}

	subs, err := s.subscribers.Subscribers(ctx, route)
	if err != nil {
		return notify.Result{}, s.storeFailure(ctx, p, "problem.resolve", err)
	}
	res := notify.Broadcast(ctx, s.out, KindResolved, subs, ResolvedNotice(route))

	if err := s.subscribers.Drop(ctx, route); err != nil {
		return res, s.storeFailure(ctx, p, "subscribers.drop", err)
	}
	if _, err := s.problems.Remove(ctx, route); err != nil {
		return res, s.storeFailure(ctx, p, "problem.resolve", err)
	}
	logger.Info(ctx, component, "problem.resolve",
		slog.String("status", "ok"),
		slog.String("route", route),
		slog.Int("recipients", res.Recipients),
		slog.Int("failed", len(res.Failed)),
	)
	return res, s.out.Send(ctx, p.ChatID, textResolved(route, res.Recipients, len(res.Failed)), nil)
}

func (s *Service) sendMenu(ctx context.Context, chatID int64, text string, menu Menu) error {
	warnOversized(ctx, menu)
	return s.out.Send(ctx, chatID, text, menu)
}

func (s *Service) requireAdmin(ctx context.Context, p Peer) error {
	if s.IsAdmin(p.UserID) {
		return nil
	}
	logger.Info(ctx, component, "access.denied", slog.String("status", "skip"))
	if err := s.out.Send(ctx, p.ChatID, ForbiddenText, nil); err != nil {
		return errors.Join(ErrForbidden, err)
	}
	return ErrForbidden
}

// storeFailure reports a repository error to the user and returns it wrapped.
func (s *Service) storeFailure(ctx context.Context, p Peer, op string, err error) error {
	logger.Error(ctx, component, op,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	if sendErr := s.out.Send(ctx, p.ChatID, textStoreFailure, nil); sendErr != nil {
		logger.Warn(ctx, component, op+".reply", slog.String("err", sendErr.Error()))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func names(problems []disruption.Problem) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, p.Name)
	}
	return out
}
