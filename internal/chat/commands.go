package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Mynotaurus/gostreaming/internal/audit"
	apperrors "github.com/Mynotaurus/gostreaming/internal/errors"
)

// Privilege is the minimum role a command requires.
type Privilege int

const (
	PrivAny Privilege = iota
	PrivModerator
	PrivAdmin
)

type commandFunc func(e *Engine, ctx context.Context, s Session, arg string) []Delivery

type command struct {
	privilege Privilege
	muteGated bool
	run       commandFunc
}

// commandTable maps every command name, aliases included, to its
// privilege requirement, mute gating and handler.
var commandTable = map[string]command{
	"/say":         {muteGated: true, run: cmdSay},
	"/me":          {muteGated: true, run: cmdAction},
	"/action":      {muteGated: true, run: cmdAction},
	"/describe":    {muteGated: true, run: cmdAction},
	"/color":       {muteGated: true, run: cmdColor},
	"/setcolor":    {muteGated: true, run: cmdColor},
	"/name":        {muteGated: true, run: cmdName},
	"/nick":        {muteGated: true, run: cmdName},
	"/help":        {run: cmdHelp},
	"/users":       {run: cmdUsers},
	"/settings":    {privilege: PrivAdmin, run: cmdSettings},
	"/mute":        {privilege: PrivModerator, run: cmdMute},
	"/quiet":       {privilege: PrivModerator, run: cmdMute},
	"/unmute":      {privilege: PrivModerator, run: cmdUnmute},
	"/unquiet":     {privilege: PrivModerator, run: cmdUnmute},
	"/mod":         {privilege: PrivAdmin, run: cmdMod},
	"/demod":       {privilege: PrivAdmin, run: cmdDemod},
	"/unmod":       {privilege: PrivAdmin, run: cmdDemod},
	"/desc":        {privilege: PrivAdmin, run: cmdDescription},
	"/description": {privilege: PrivAdmin, run: cmdDescription},
	"/password":    {privilege: PrivAdmin, run: cmdPassword},
}

// dispatchCommand parses "/cmd arg" and routes through the command
// table. Unknown names and privilege failures share one response, so
// privileged commands stay invisible to users who cannot run them.
func (e *Engine) dispatchCommand(ctx context.Context, s Session, message string) []Delivery {
	name, arg := splitCommand(message)

	cmd, ok := commandTable[name]
	if !ok || !hasPrivilege(s, cmd.privilege) {
		return serverTo(s.ID, fmt.Sprintf("Unrecognized command '%s', use '/help' for info.", name))
	}
	if cmd.muteGated && s.Muted {
		return serverTo(s.ID, "You are muted!")
	}
	return cmd.run(e, ctx, s, arg)
}

// splitCommand separates the command name from its argument at the
// first space. The argument keeps any further whitespace.
func splitCommand(message string) (name, arg string) {
	if i := strings.IndexByte(message, ' '); i >= 0 {
		return message[:i], message[i+1:]
	}
	return message, ""
}

func hasPrivilege(s Session, p Privilege) bool {
	switch p {
	case PrivAdmin:
		return s.Admin
	case PrivModerator:
		return s.Admin || s.Moderator
	default:
		return true
	}
}

func cmdSay(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return []Delivery{toRoom(s.Room, EventMessageReceived, e.chatPayload(s, e.transform(arg)))}
}

func cmdAction(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return []Delivery{toRoom(s.Room, EventActionReceived, e.chatPayload(s, e.transform(arg)))}
}

func cmdColor(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	color, err := ResolveColor(arg)
	if err != nil {
		return serverTo(s.ID, fmt.Sprintf(`Invalid color %s specified, try a color name, an HTML color like #ff00ff or "random" for a random color.`, arg))
	}

	updated, ok := e.registry.Mutate(s.ID, func(sess *Session) { sess.Color = color })
	if !ok {
		return errorTo(s.ID, "User is not authenticated")
	}
	return []Delivery{
		toRoom(s.Room, EventActionReceived, e.chatPayload(updated, "changed their color!")),
		toConn(s.ID, EventReturnColor, map[string]any{"color": updated.HTMLColor()}),
	}
}

func cmdName(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	name := strings.TrimSpace(arg)
	if utf8.RuneCountInString(name) >= maxNameLength {
		return serverTo(s.ID, "Too long of a name specified, try a different name.")
	}
	if name == "" {
		return serverTo(s.ID, "Invalid name specified, try a different name.")
	}

	updated, err := e.registry.Rename(s.ID, name)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeConflict {
			return serverTo(s.ID, "Name has already been taken, try a different name.")
		}
		return errorTo(s.ID, "User is not authenticated")
	}
	return []Delivery{toRoom(s.Room, EventRename, map[string]any{
		"newname": updated.Name,
		"oldname": s.Name,
		"type":    updated.Role(),
		"color":   updated.HTMLColor(),
		"users":   e.registry.ListRoom(s.Room),
	})}
}

func cmdHelp(_ *Engine, _ context.Context, s Session, _ string) []Delivery {
	lines := []string{
		"The following commands are recognized:",
		"/help - show this message",
		"/users - show the currently chatting users",
		"/me - perform an action",
		"/color - set the color of your name in chat",
		"/name - change your name to a new one",
	}
	if s.Admin {
		lines = append(lines,
			"/settings - display all stream settings",
			"/description <text> - set the stream description",
			"/password [<text>] - set or unset the stream password",
			"/mod <user> - grant moderator privileges to user",
			"/demod <user> - revoke moderator privileges to user",
		)
	}
	if s.Admin || s.Moderator {
		lines = append(lines,
			"/mute <user> - mute user",
			"/unmute <user> - unmute user",
		)
	}

	out := make([]Delivery, 0, len(lines))
	for _, line := range lines {
		out = append(out, toConn(s.ID, EventServer, msgData(line)))
	}
	return out
}

func cmdUsers(e *Engine, _ context.Context, s Session, _ string) []Delivery {
	return []Delivery{toConn(s.ID, EventUserList, map[string]any{
		"users": e.registry.ListRoom(s.Room),
	})}
}

func cmdSettings(e *Engine, ctx context.Context, s Session, _ string) []Delivery {
	settings, err := e.store.FindByUsername(ctx, s.Room)
	if err != nil {
		log.Error().Err(err).Str("streamer", s.Room).Msg("settings lookup failed")
		return serverTo(s.ID, "Error looking up settings!")
	}
	if settings == nil {
		return serverTo(s.ID, "Error looking up settings!")
	}

	description := ""
	if settings.Description != nil {
		description = *settings.Description
	}
	out := []Delivery{toConn(s.ID, EventServer, msgData(fmt.Sprintf("Description: %s", description)))}
	if settings.HasPassword() {
		out = append(out, toConn(s.ID, EventServer, msgData(fmt.Sprintf("Stream password: %s", *settings.StreamPass))))
	} else {
		out = append(out, toConn(s.ID, EventServer, msgData("No stream password")))
	}
	return out
}

// moderate resolves a moderation target by name and applies a role-flag
// change atomically. apply reports false when the flag already had the
// requested value, which turns the command into a caller-only notice.
func moderate(e *Engine, s Session, arg string, event audit.EventType, apply func(*Session) bool, confirmed, notified, already string) []Delivery {
	target := strings.ToLower(strings.TrimSpace(arg))
	victim, ok := e.registry.FindByName(s.Room, target)
	if !ok {
		return serverTo(s.ID, fmt.Sprintf("Unrecognized user '%s'", target))
	}

	changed := false
	e.registry.Mutate(victim.ID, func(sess *Session) { changed = apply(sess) })
	if !changed {
		return serverTo(s.ID, fmt.Sprintf(already, target))
	}

	audit.Log(audit.Event{
		Type:     event,
		Streamer: s.Room,
		Actor:    s.Name,
		Target:   victim.Name,
	})
	return []Delivery{
		toConn(s.ID, EventServer, msgData(fmt.Sprintf(confirmed, target))),
		toConn(victim.ID, EventServer, msgData(notified)),
	}
}

func cmdMute(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return moderate(e, s, arg, audit.EventUserMuted,
		func(sess *Session) bool {
			changed := !sess.Muted
			sess.Muted = true
			return changed
		},
		"User '%s' has been muted.",
		"You have been muted.",
		"User '%s' is already muted.",
	)
}

func cmdUnmute(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return moderate(e, s, arg, audit.EventUserUnmuted,
		func(sess *Session) bool {
			changed := sess.Muted
			sess.Muted = false
			return changed
		},
		"User '%s' has been unmuted.",
		"You have been unmuted.",
		"User '%s' is not muted.",
	)
}

func cmdMod(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return moderate(e, s, arg, audit.EventModeratorGranted,
		func(sess *Session) bool {
			changed := !sess.Moderator
			sess.Moderator = true
			return changed
		},
		"User '%s' has been promoted to moderator.",
		"You have been promoted to moderator.",
		"User '%s' is already a moderator.",
	)
}

func cmdDemod(e *Engine, _ context.Context, s Session, arg string) []Delivery {
	return moderate(e, s, arg, audit.EventModeratorRevoked,
		func(sess *Session) bool {
			changed := sess.Moderator
			sess.Moderator = false
			return changed
		},
		"User '%s' has been demoted from moderator.",
		"You have been demoted from moderator.",
		"User '%s' is not a moderator.",
	)
}

func cmdDescription(e *Engine, ctx context.Context, s Session, arg string) []Delivery {
	description := e.transform(strings.TrimSpace(arg))
	if err := e.store.UpdateDescription(ctx, s.Room, description); err != nil {
		log.Error().Err(err).Str("streamer", s.Room).Msg("description update failed")
		return serverTo(s.ID, "Error updating stream description!")
	}

	audit.Log(audit.Event{
		Type:     audit.EventDescriptionUpdated,
		Streamer: s.Room,
		Actor:    s.Name,
	})
	return serverTo(s.ID, "Stream description updated!")
}

func cmdPassword(e *Engine, ctx context.Context, s Session, arg string) []Delivery {
	if arg != "" {
		if err := e.store.UpdatePassword(ctx, s.Room, &arg); err != nil {
			log.Error().Err(err).Str("streamer", s.Room).Msg("password update failed")
			return serverTo(s.ID, "Error updating stream password!")
		}

		audit.Log(audit.Event{
			Type:     audit.EventPasswordSet,
			Streamer: s.Room,
			Actor:    s.Name,
		})
		return []Delivery{
			toConn(s.ID, EventServer, msgData(fmt.Sprintf(`Stream password set to "%s"!`, arg))),
			toConn(s.ID, EventPasswordSet, map[string]any{"password": arg}),
			toRoom(s.Room, EventPasswordActivated, map[string]any{"username": s.Room}),
		}
	}

	if err := e.store.UpdatePassword(ctx, s.Room, nil); err != nil {
		log.Error().Err(err).Str("streamer", s.Room).Msg("password update failed")
		return serverTo(s.ID, "Error updating stream password!")
	}

	audit.Log(audit.Event{
		Type:     audit.EventPasswordCleared,
		Streamer: s.Room,
		Actor:    s.Name,
	})
	return []Delivery{
		toConn(s.ID, EventServer, msgData("Stream password removed!")),
		toRoom(s.Room, EventPasswordDeactivated, map[string]any{
			"username": s.Room,
			"msg":      "Stream password has been removed.",
		}),
	}
}
