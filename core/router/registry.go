package router

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// Command represents a keyword command with its handler, description, and metadata.
type Command struct {
	Handler     chat.HandlerFunc
	Description string
	GroupOnly   bool
	Hidden      bool
	Aliases     []string
}

// Registry holds keyword commands. Keywords are matched case-insensitively
// against the whole trimmed message text.
type Registry struct {
	commands map[string]Command
	index    map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		index:    make(map[string]string),
	}
}

func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register adds a command under name and its aliases. Invalid or duplicate
// registrations are logged and skipped.
func (r *Registry) Register(name string, cmd Command) {
	key := normalizeKeyword(name)
	if r == nil || key == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(context.Background(), logger.CompWire, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if _, exists := r.commands[key]; exists {
		logger.Warn(context.Background(), logger.CompWire, "register.command.duplicate",
			slog.String("name", key),
		)
		return
	}
	r.commands[key] = cmd
	r.index[key] = key
	for _, alias := range cmd.Aliases {
		a := normalizeKeyword(alias)
		if a == "" {
			continue
		}
		if owner, taken := r.index[a]; taken && owner != key {
			logger.Warn(context.Background(), logger.CompWire, "register.alias.duplicate",
				slog.String("name", key),
				slog.String("alias", a),
			)
			continue
		}
		r.index[a] = key
	}
}

// Lookup searches for a command by keyword or alias and returns its canonical name.
func (r *Registry) Lookup(text string) (string, Command, bool) {
	if r == nil {
		return "", Command{}, false
	}
	key, ok := r.index[normalizeKeyword(text)]
	if !ok {
		return "", Command{}, false
	}
	return key, r.commands[key], true
}

// Entry is a visible command with its description.
type Entry struct {
	Name        string
	Aliases     []string
	Description string
	GroupOnly   bool
}

// Descriptions lists visible commands sorted by name.
func (r *Registry) Descriptions() []Entry {
	if r == nil {
		return nil
	}
	list := make([]Entry, 0, len(r.commands))
	for name, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		list = append(list, Entry{
			Name:        name,
			Aliases:     append([]string(nil), cmd.Aliases...),
			Description: cmd.Description,
			GroupOnly:   cmd.GroupOnly,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
