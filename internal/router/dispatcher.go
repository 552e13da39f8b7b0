package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/store"
)

// HandlerFunc handles one classified event.
type HandlerFunc func(ctx context.Context, event channel.Event, cl Classified) error

// CallbackFunc handles one resolved button press. The payload is
// whatever the rendering handler stored alongside the token.
type CallbackFunc func(ctx context.Context, event channel.Event, payload string) error

// Routes is the static dispatch table: command names and callback
// actions to handlers, plus the fixed routes for uploads and free text.
type Routes struct {
	Commands  map[string]HandlerFunc
	Callbacks map[string]CallbackFunc

	Document       HandlerFunc
	Photo          HandlerFunc
	ProfileText    HandlerFunc
	PollText       HandlerFunc
	Unrecognized   HandlerFunc
	UnknownCommand HandlerFunc
}

// Dispatcher routes one event to exactly one handler. Before any
// handler runs, the sender is upserted into the store, so handlers can
// assume the identity row exists.
type Dispatcher struct {
	logger  *slog.Logger
	store   *store.Store
	gateway channel.Gateway
	routes  Routes
}

// NewDispatcher builds a dispatcher over the given routes.
func NewDispatcher(log *slog.Logger, st *store.Store, gateway channel.Gateway, routes Routes) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		logger:  log.With(slog.String("component", "router")),
		store:   st,
		gateway: gateway,
		routes:  routes,
	}
}

const unavailableReply = "The service is temporarily unavailable, please try again."

// Dispatch classifies and handles one event. Handler errors are logged
// with enough context to replay manually and returned to the caller;
// they never abort the dispatch loop.
func (d *Dispatcher) Dispatch(ctx context.Context, event channel.Event) error {
	cl := Classify(event)
	if cl.Kind == KindIgnore {
		return nil
	}

	if event.Sender.ID != 0 {
		if err := d.registerSender(ctx, event); err != nil {
			return err
		}
	}

	var err error
	switch cl.Kind {
	case KindCommand:
		handler := d.routes.Commands[cl.Command]
		if handler == nil {
			handler = d.routes.UnknownCommand
		}
		err = d.invoke(ctx, handler, event, cl)
	case KindFreeText:
		err = d.dispatchFreeText(ctx, event, cl)
	case KindDocument:
		err = d.invoke(ctx, d.routes.Document, event, cl)
	case KindPhoto:
		err = d.invoke(ctx, d.routes.Photo, event, cl)
	case KindButtonPress:
		err = d.dispatchPress(ctx, event)
	}

	if err != nil {
		d.logger.Error("handler failed",
			slog.Int64("identity_id", event.Sender.ID),
			slog.String("event_kind", kindString(cl.Kind)),
			slog.Any("error", err))
	}
	return err
}

// registerSender is the registration-on-contact precondition: every
// event carrying a sender refreshes the identity before handler logic.
func (d *Dispatcher) registerSender(ctx context.Context, event channel.Event) error {
	identity := store.Identity{
		ID:        event.Sender.ID,
		Handle:    event.Sender.Handle,
		FirstName: event.Sender.FirstName,
		LastName:  event.Sender.LastName,
		IsActive:  true,
	}
	if err := d.store.UpsertIdentity(ctx, identity); err != nil {
		d.logger.Error("register sender failed",
			slog.Int64("identity_id", event.Sender.ID),
			slog.Any("error", err))
		d.reply(ctx, event, unavailableReply)
		return err
	}
	return nil
}

func (d *Dispatcher) dispatchFreeText(ctx context.Context, event channel.Event, cl Classified) error {
	switch classifyFreeText(cl.Text) {
	case routeProfile:
		return d.invoke(ctx, d.routes.ProfileText, event, cl)
	case routePoll:
		return d.invoke(ctx, d.routes.PollText, event, cl)
	default:
		return d.invoke(ctx, d.routes.Unrecognized, event, cl)
	}
}

func (d *Dispatcher) dispatchPress(ctx context.Context, event channel.Event) error {
	press := event.Press

	token, err := d.store.GetCallbackToken(ctx, press.Token)
	if errors.Is(err, store.ErrNotFound) {
		return d.gateway.AnswerButtonPress(ctx, press.PressID, "This button has expired.")
	}
	if err != nil {
		d.answerPress(ctx, press.PressID)
		return fmt.Errorf("resolve callback token: %w", err)
	}

	d.answerPress(ctx, press.PressID)

	callback := d.routes.Callbacks[token.Action]
	if callback == nil {
		return fmt.Errorf("no callback registered for action %q", token.Action)
	}
	return callback(ctx, event, token.Payload)
}

func (d *Dispatcher) invoke(ctx context.Context, handler HandlerFunc, event channel.Event, cl Classified) error {
	if handler == nil {
		return fmt.Errorf("no handler for %s event", kindString(cl.Kind))
	}
	return handler(ctx, event, cl)
}

// answerPress acknowledges a button press. A failed acknowledgment is
// only cosmetic, so it is logged and swallowed.
func (d *Dispatcher) answerPress(ctx context.Context, pressID string) {
	if err := d.gateway.AnswerButtonPress(ctx, pressID, ""); err != nil {
		d.logger.Warn("answer press failed", slog.Any("error", err))
	}
}

func (d *Dispatcher) reply(ctx context.Context, event channel.Event, text string) {
	if event.ChatID == 0 {
		return
	}
	if _, err := d.gateway.SendText(ctx, event.ChatID, text, nil); err != nil {
		d.logger.Warn("send reply failed", slog.Int64("chat_id", event.ChatID), slog.Any("error", err))
	}
}

func kindString(kind Kind) string {
	switch kind {
	case KindCommand:
		return "command"
	case KindFreeText:
		return "free_text"
	case KindDocument:
		return "document"
	case KindPhoto:
		return "photo"
	case KindButtonPress:
		return "button_press"
	default:
		return "ignore"
	}
}
