// Package session hosts one chat conversation: it reads lines from a Console,
// turns them into sentences, and dispatches the hosting-service verbs.
//
//	input line → Transducer → Sentence → Dispatcher → verb → Console
//
// Every session owns its hub client, dispatcher and stored objects; nothing
// but the hub database is shared between sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"gitchat/internal/dispatch"
	"gitchat/internal/hub"
	"gitchat/internal/logging"
	"gitchat/internal/perception"
	"gitchat/internal/resolve"
	"gitchat/internal/types"
)

const separator = "  ::  "

// Replies the bot prints on recovered failures.
const (
	unknownUser    = "I don't know who are you"
	badCredentials = "incorrect login or password"
)

// Config holds the presentation settings of a session.
type Config struct {
	// BotNick is the nick the bot speaks under.
	BotNick string
	// DefaultNick is shown for the user until they log in.
	DefaultNick string
	// MaxNickLen is the width of the nick column.
	MaxNickLen int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BotNick:     "gitchat",
		DefaultNick: "you",
		MaxNickLen:  10,
	}
}

// Session is one conversation.
type Session struct {
	id         string
	cfg        Config
	transducer perception.Transducer
	norm       *perception.Normalizer
	hub        hub.Hub
	dispatcher *dispatch.Dispatcher
	console    Console
	log        *logging.RequestLogger

	mu      sync.Mutex
	running bool
}

// New creates a session over its own hub view h. Verbs and the error policy
// are registered on a fresh dispatcher.
func New(cfg Config, tr perception.Transducer, h hub.Hub, console Console) *Session {
	def := DefaultConfig()
	if cfg.BotNick == "" {
		cfg.BotNick = def.BotNick
	}
	if cfg.DefaultNick == "" {
		cfg.DefaultNick = def.DefaultNick
	}
	if cfg.MaxNickLen <= 0 {
		cfg.MaxNickLen = def.MaxNickLen
	}

	id := uuid.New().String()
	s := &Session{
		id:         id,
		cfg:        cfg,
		transducer: tr,
		norm:       perception.NewNormalizer(),
		hub:        h,
		console:    console,
		log:        logging.WithRequestID(logging.CategorySession, id),
	}
	s.dispatcher = dispatch.New(NewRegistry(h), s.norm, dispatch.NewStore(types.User, types.Repo, types.Gist))
	s.dispatcher.OnError(s.handleError)

	s.dispatcher.Handle("show", s.show)
	s.dispatcher.Handle("store", s.store)
	s.dispatcher.Handle("log", s.logVerb)
	s.dispatcher.Handle("login", s.login)
	s.dispatcher.Handle("logout", s.logout)
	s.dispatcher.Handle("hello", s.hello)
	s.dispatcher.Handle("bye", s.bye)
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Dispatcher exposes the session dispatcher.
func (s *Session) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Running reports whether the loop keeps reading input.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Run greets the user and handles lines until bye, end of input, a fatal
// error or cancellation of ctx.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.log.Info("session started")
	defer s.log.Info("session finished")

	if err := s.say("hello"); err != nil {
		return err
	}
	for s.Running() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.console.ReadLine(s.prompt())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Handle(ctx, line); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logging.SessionError("session %s: fatal: %v", s.id, err)
			return err
		}
	}
	return nil
}

// Handle processes one input line. Lines that do not parse into a clause are
// dropped silently.
func (s *Session) Handle(ctx context.Context, line string) error {
	sentence, err := s.transducer.Transduce(ctx, line)
	if errors.Is(err, perception.ErrRejected) {
		s.log.Debug("dropped %q", line)
		return nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.log.Warn("could not parse %q: %v", line, err)
		return nil
	}
	s.log.Debug("sentence for %q:\n%s", line, sentence)
	return s.dispatcher.Dispatch(ctx, sentence)
}

// =============================================================================
// CONSOLE HELPERS
// =============================================================================

func (s *Session) nick() string {
	if u, ok := s.hub.Authorised(); ok {
		return u.Login
	}
	return s.cfg.DefaultNick
}

func (s *Session) prompt() string {
	return FormatNick(s.nick(), s.cfg.MaxNickLen) + separator
}

func (s *Session) say(format string, args ...interface{}) error {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	return s.console.WriteLine(FormatNick(s.cfg.BotNick, s.cfg.MaxNickLen) + separator + text)
}

// =============================================================================
// ERROR POLICY
// =============================================================================

// handleError reports the expected hub failures to the user and lets the build
// continue with None. Anything else aborts the dispatch.
func (s *Session) handleError(_ context.Context, fn *resolve.Function, err error) error {
	var forbidden *hub.ForbiddenError
	switch {
	case errors.Is(err, hub.ErrNotFound), errors.Is(err, dispatch.ErrEmptyResult):
		return s.say("%s not found", fn.Result.Title())
	case errors.As(err, &forbidden):
		return s.say("%s", forbidden.Message)
	case errors.Is(err, hub.ErrUnauthorized):
		return s.say(unknownUser)
	}
	return fmt.Errorf("%s: %w", fn.Name, err)
}

// =============================================================================
// VERBS
// =============================================================================

func (s *Session) show(ctx context.Context, obj types.Object) error {
	if obj.Type == types.String {
		word := obj.Text()
		if s.norm.Verb(word) != "show" && s.dispatcher.HasVerb(word) {
			_, err := s.dispatcher.Invoke(ctx, word, types.Null())
			return err
		}
	}
	for _, line := range Render(obj) {
		if err := s.say("%s", line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) store(ctx context.Context, obj types.Object) error {
	if obj.IsNone() {
		return nil
	}
	if obj.Type == types.String && s.norm.Noun(obj.Text()) == "me" {
		u, err := s.hub.Me(ctx)
		if errors.Is(err, hub.ErrUnauthorized) {
			return s.say(unknownUser)
		}
		if err != nil {
			return err
		}
		obj = types.Wrap(types.User, u)
	}
	if err := s.dispatcher.Store().Set(obj); err != nil {
		if errors.Is(err, dispatch.ErrNotStorable) {
			return s.say("I can not remember %s", obj.Type)
		}
		return err
	}
	return s.say("I remember it")
}

// logVerb handles the split forms "log in" and "log out".
func (s *Session) logVerb(ctx context.Context, obj types.Object) error {
	if obj.Type != types.String {
		return nil
	}
	switch strings.ToLower(obj.Text()) {
	case "in":
		return s.login(ctx, types.Null())
	case "out":
		return s.logout(ctx, types.Null())
	}
	return nil
}

// login asks for credentials. A String argument is taken as the login.
func (s *Session) login(ctx context.Context, obj types.Object) error {
	if _, ok := s.hub.Authorised(); ok {
		return s.say("logout before you login again")
	}

	login := ""
	if obj.Type == types.String {
		login = obj.Text()
	} else {
		if err := s.say("enter your login for github"); err != nil {
			return err
		}
		line, err := s.console.ReadLine(s.prompt())
		if err != nil {
			return err
		}
		login = strings.TrimSpace(line)
	}
	if err := s.say("enter password"); err != nil {
		return err
	}
	password, err := s.console.ReadSecret(s.prompt())
	if err != nil {
		return err
	}

	if _, err := s.hub.Authenticate(ctx, login, password); err != nil {
		if errors.Is(err, hub.ErrBadCredentials) {
			s.log.Info("failed login for %q", login)
			return s.say(badCredentials)
		}
		return err
	}
	s.log.Info("logged in as %s", login)
	return nil
}

func (s *Session) logout(_ context.Context, _ types.Object) error {
	if u, ok := s.hub.Authorised(); ok {
		s.log.Info("logged out %s", u.Login)
	}
	s.hub.Logout()
	return nil
}

func (s *Session) hello(_ context.Context, _ types.Object) error {
	return s.say("=)")
}

func (s *Session) bye(_ context.Context, _ types.Object) error {
	s.stop()
	return s.say("bye")
}
