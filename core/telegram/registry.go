package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/telegram/commands"
)

// Registry holds slash commands and callback handlers keyed by payload tag.
type Registry struct {
	commands    map[string]commands.Command
	callbacks   map[string]tele.HandlerFunc
	callbacksMu sync.RWMutex
	notFound    tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds a slash command. Invalid or duplicate names are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	ctx := context.Background()
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		logger.Warn(ctx, logger.CompTGWire, "register.command.skip",
			slog.String("name", name), slog.String("cause", "invalid"))
		return errors.New("invalid command registration")
	case !strings.HasPrefix(name, "/"):
		logger.Warn(ctx, logger.CompTGWire, "register.command.skip",
			slog.String("name", name), slog.String("cause", "no_slash_prefix"))
		return fmt.Errorf("command %q must start with /", name)
	}
	if _, exists := r.commands[name]; exists {
		logger.Warn(ctx, logger.CompTGWire, "register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = cmd
	return nil
}

// ListCommands returns commands sorted by name; visibleOnly drops hidden and admin ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && !meta.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a command by its first word, canonical name or alias.
// A "@botname" suffix is ignored.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", commands.Command{}, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		if cmd.Matches(name) {
			return key, cmd, true
		}
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback maps a callback tag to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		logger.Warn(context.Background(), logger.CompTGWire, "register.callback.skip",
			slog.String("cb_key", key), slog.Bool("handler_nil", handler == nil))
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.Warn(context.Background(), logger.CompTGWire, "register.callback.duplicate",
			slog.String("cb_key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the handler for unregistered callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	r.notFound = h
}

// CallbackNotFound returns the handler for unregistered callback keys, if any.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}

// SetupCommands publishes the visible commands as the bot's menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), logger.CompTGWire, "register.commands.set", logger.Err(err))
		return
	}
	logger.Debug(context.Background(), logger.CompTGWire, "register.commands.set",
		slog.Int("count", len(list)))
}
