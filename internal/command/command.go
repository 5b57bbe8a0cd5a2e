// Package command turns chat lines into engine commands. Lines that start
// with the prefix are parsed as structured commands; anything else is a
// free-text pick attempt.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

const (
	NameStartDraft = "startdraft"
	NameHelp       = "help"
)

type Bounds struct {
	MinTimer  time.Duration
	MaxTimer  time.Duration
	MaxRounds int
}

var DefaultBounds = Bounds{MinTimer: 5 * time.Second, MaxTimer: 10 * time.Minute, MaxRounds: 50}

// Request is a resolved chat line. Command is zero for startdraft and help.
type Request struct {
	Name     string
	FreeText bool
	Rounds   int
	Command  engine.Command
}

type Resolver struct {
	Prefix string
	Bounds Bounds
}

func NewResolver(prefix string, b Bounds) Resolver {
	if prefix == "" {
		prefix = "!"
	}
	return Resolver{Prefix: prefix, Bounds: b}
}

// Resolve classifies text. It never fails for free text; the session
// decides whether the text names an item.
func (r Resolver) Resolve(text string) (Request, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.Prefix) {
		return Request{
			Name:     string(engine.CmdPick),
			FreeText: true,
			Command:  engine.Command{Type: engine.CmdPick, Text: text, FreeText: true},
		}, nil
	}

	body := strings.TrimSpace(strings.TrimPrefix(text, r.Prefix))
	name, args := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, args = body[:i], strings.TrimSpace(body[i:])
	}
	return r.Build(name, args)
}

// Build resolves an already split command name and argument string, as sent
// by transports that deliver structured commands.
func (r Resolver) Build(name, args string) (Request, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	req := Request{Name: name}

	switch name {
	case NameStartDraft:
		rounds, err := r.parseRounds(args)
		if err != nil {
			return Request{}, err
		}
		req.Rounds = rounds
		return req, nil

	case NameHelp:
		return req, nil

	case "join", "fliporder", "begin", "status", "mypicks", "pool", "order", "teams", "export", "forcestop":
		req.Command.Type = engine.CommandType(name)

	case "setpool":
		items, sides, err := ParsePool(args)
		if err != nil {
			return Request{}, err
		}
		req.Command = engine.Command{Type: engine.CmdSetPool, Items: items, Sides: sides}

	case "snake", "testmode":
		on, err := ParseToggle(args)
		if err != nil {
			return Request{}, err
		}
		req.Command = engine.Command{Type: engine.CommandType(name), Enabled: on}

	case "onexpire":
		fb, ok := engine.ParseFallback(strings.ToLower(args))
		if !ok {
			return Request{}, invalid("usage: onexpire skip|autopick")
		}
		req.Command = engine.Command{Type: engine.CmdOnExpire, Fallback: fb}

	case "pick":
		if args == "" {
			return Request{}, invalid("usage: pick <item>")
		}
		req.Command = engine.Command{Type: engine.CmdPick, Text: args}

	case "timer":
		d, err := r.parseTimer(args)
		if err != nil {
			return Request{}, err
		}
		req.Command = engine.Command{Type: engine.CmdTimer, Duration: d}

	default:
		return Request{}, &engine.Error{
			Kind:    engine.KindUnknownCommand,
			Message: fmt.Sprintf("unknown command %q, try %shelp", name, r.Prefix),
		}
	}
	return req, nil
}

func (r Resolver) parseRounds(args string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 {
		return 0, invalid("usage: startdraft <rounds>, rounds must be a positive number")
	}
	if r.Bounds.MaxRounds > 0 && n > r.Bounds.MaxRounds {
		return 0, invalid("a draft can have at most %d rounds", r.Bounds.MaxRounds)
	}
	return n, nil
}

func (r Resolver) parseTimer(args string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "off", "stop", "0":
		return 0, nil
	case "":
		return 0, invalid("usage: timer <duration>|off, e.g. timer 30s")
	}
	d, err := ParseDuration(args)
	if err != nil {
		return 0, err
	}
	if d < r.Bounds.MinTimer || (r.Bounds.MaxTimer > 0 && d > r.Bounds.MaxTimer) {
		return 0, invalid("timer must be between %s and %s", r.Bounds.MinTimer, r.Bounds.MaxTimer)
	}
	return d, nil
}

// ParseToggle accepts on/off style words; empty means on.
func ParseToggle(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "", "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, invalid("expected on or off, got %q", args)
}

var unitWords = map[string]time.Duration{
	"": time.Second, "s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
}

// ParseDuration reads "90", "30s", "30 sec", "2 minutes" or any Go duration
// such as "1m30s". Bare numbers are seconds.
func ParseDuration(text string) (time.Duration, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), ""))
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i < 0 {
		i = len(s)
	}
	if i > 0 {
		if unit, ok := unitWords[s[i:]]; ok {
			n, err := strconv.Atoi(s[:i])
			if err == nil {
				return time.Duration(n) * unit, nil
			}
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, invalid("could not read %q as a duration, try 30s, 90 or 2m", strings.TrimSpace(text))
	}
	return d, nil
}

// ParsePool reads "a, b, c" or the grouped form "Side A: a, b | Side B: c".
// Exactly one of items and sides is returned. Input that looks grouped but
// has a chunk without a side label is rejected.
func ParsePool(text string) (items []string, sides []engine.SideGroup, err error) {
	if groups, ok := parseGroups(text); ok {
		return nil, groups, nil
	}
	if strings.Contains(text, ":") && strings.Contains(text, "|") {
		return nil, nil, invalid("pool format looks grouped but is invalid, use Side: item1, item2 | Side2: item3")
	}
	items = splitList(text)
	if len(items) == 0 {
		return nil, nil, invalid("you must provide at least one item")
	}
	return items, nil, nil
}

func parseGroups(text string) ([]engine.SideGroup, bool) {
	var groups []engine.SideGroup
	for _, chunk := range strings.Split(text, "|") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		side, entries, found := strings.Cut(chunk, ":")
		if !found {
			return nil, false
		}
		side = strings.TrimSpace(side)
		items := splitList(entries)
		if side == "" || len(items) == 0 {
			continue
		}
		groups = append(groups, engine.SideGroup{Side: side, Items: items})
	}
	return groups, len(groups) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func invalid(format string, args ...any) *engine.Error {
	return &engine.Error{Kind: engine.KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
