package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/m3rciful/seatwatch/core/telegram/format"
)

// Callback payload tags.
const (
	TagStation   = "st"
	TagTrain     = "tr"
	TagAnyTrain  = "any"
	TagSubscribe = "sub"
	TagDisable   = "off"
	TagEnable    = "on"
)

const (
	// DefaultPayloadLimit is Telegram's callback_data ceiling in bytes.
	DefaultPayloadLimit = 64
	maxNameRunes        = 30
	wirePrefix          = "\f"
	fieldSep            = "|"
)

var (
	// ErrBadPayload marks callback data that cannot be decoded.
	ErrBadPayload = errors.New("search: malformed callback payload")
	// ErrStalePayload marks a well-formed callback that no longer fits the user's state.
	ErrStalePayload = errors.New("search: stale callback payload")
)

// Payload is the decoded form of a callback button.
// Code holds the station code or train number; Name the optional station
// name or train label; ID the subscription id for TagDisable and TagEnable.
type Payload struct {
	Tag  string
	Code string
	Name string
	ID   int64
}

// StationPayload builds a station selection payload.
func StationPayload(code, name string) Payload { return Payload{Tag: TagStation, Code: code, Name: name} }

// TrainPayload builds a train selection payload.
func TrainPayload(number, label string) Payload { return Payload{Tag: TagTrain, Code: number, Name: label} }

// AnyTrainPayload selects a route-wide subscription.
func AnyTrainPayload() Payload { return Payload{Tag: TagAnyTrain} }

// SubscribePayload confirms the subscription.
func SubscribePayload() Payload { return Payload{Tag: TagSubscribe} }

// DisablePayload turns subscription id off.
func DisablePayload(id int64) Payload { return Payload{Tag: TagDisable, ID: id} }

// EnablePayload turns subscription id back on.
func EnablePayload(id int64) Payload { return Payload{Tag: TagEnable, ID: id} }

func cleanField(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '|' || unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// EncodePayload renders p in telebot's "\f<tag>|<fields>" form within limit
// bytes (limit <= 0 means DefaultPayloadLimit). Names are cut to 30 runes and
// dropped entirely when the result would still exceed the limit.
func EncodePayload(p Payload, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultPayloadLimit
	}
	var essential, optional []string
	switch p.Tag {
	case TagStation, TagTrain:
		code := cleanField(p.Code)
		if code == "" {
			return "", fmt.Errorf("%w: %s without code", ErrBadPayload, p.Tag)
		}
		essential = []string{code}
		if name := format.Runes(cleanField(p.Name), maxNameRunes); name != "" {
			optional = []string{name}
		}
	case TagAnyTrain, TagSubscribe:
	case TagDisable, TagEnable:
		if p.ID <= 0 {
			return "", fmt.Errorf("%w: %s without id", ErrBadPayload, p.Tag)
		}
		essential = []string{strconv.FormatInt(p.ID, 10)}
	default:
		return "", fmt.Errorf("%w: unknown tag %q", ErrBadPayload, p.Tag)
	}

	full := join(p.Tag, append(essential, optional...))
	if len(full) <= limit {
		return full, nil
	}
	short := join(p.Tag, essential)
	if len(short) > limit {
		return "", fmt.Errorf("%w: %d bytes over limit %d", ErrBadPayload, len(short), limit)
	}
	return short, nil
}

func join(tag string, fields []string) string {
	if len(fields) == 0 {
		return wirePrefix + tag
	}
	return wirePrefix + tag + fieldSep + strings.Join(fields, fieldSep)
}

// MustEncode is EncodePayload for payloads known to fit, such as fixed tags.
func MustEncode(p Payload) string {
	s, err := EncodePayload(p, DefaultPayloadLimit)
	if err != nil {
		panic(err)
	}
	return s
}

// DecodePayload parses callback data produced by EncodePayload.
// The leading form feed is optional.
func DecodePayload(data string) (Payload, error) {
	fields := strings.Split(strings.TrimPrefix(data, wirePrefix), fieldSep)
	p := Payload{Tag: fields[0]}
	args := fields[1:]
	switch p.Tag {
	case TagStation, TagTrain:
		if len(args) == 0 || len(args) > 2 || args[0] == "" {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, data)
		}
		p.Code = args[0]
		if len(args) == 2 {
			p.Name = args[1]
		}
	case TagAnyTrain, TagSubscribe:
		if len(args) != 0 {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, data)
		}
	case TagDisable, TagEnable:
		if len(args) != 1 {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, data)
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return Payload{}, fmt.Errorf("%w: %q", ErrBadPayload, data)
		}
		p.ID = id
	default:
		return Payload{}, fmt.Errorf("%w: unknown tag in %q", ErrBadPayload, data)
	}
	return p, nil
}
