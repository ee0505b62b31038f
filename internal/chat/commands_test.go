package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDispatchCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown commands point at help", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/wat now")
		require.Len(t, out, 1)
		assert.Equal(t, EventServer, out[0].Event)
		assert.Equal(t, "Unrecognized command '/wat', use '/help' for info.", dataMap(t, out[0])["msg"])
	})

	t.Run("privileged commands are invisible to normal users", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		for _, line := range []string{"/mute carol", "/mod carol", "/settings", "/desc x", "/password x"} {
			out := e.HandleMessage(ctx, "conn-1", line)
			require.Len(t, out, 1)
			name, _ := splitCommand(line)
			assert.Equal(t, "Unrecognized command '"+name+"', use '/help' for info.", dataMap(t, out[0])["msg"])
		}
	})

	t.Run("moderators still cannot use admin commands", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		e.registry.Mutate("conn-1", func(s *Session) { s.Moderator = true })

		out := e.HandleMessage(ctx, "conn-1", "/mod carol")
		require.Len(t, out, 1)
		assert.Equal(t, "Unrecognized command '/mod', use '/help' for info.", dataMap(t, out[0])["msg"])
	})

	t.Run("muting gates speech commands but not queries", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		e.registry.Mutate("conn-1", func(s *Session) { s.Muted = true })

		for _, line := range []string{"/say hi", "/me waves", "/color red", "/name Carl"} {
			out := e.HandleMessage(ctx, "conn-1", line)
			require.Len(t, out, 1)
			assert.Equal(t, "You are muted!", dataMap(t, out[0])["msg"], "%s should be gated", line)
		}

		out := e.HandleMessage(ctx, "conn-1", "/users")
		require.Len(t, out, 1)
		assert.Equal(t, EventUserList, out[0].Event)

		out = e.HandleMessage(ctx, "conn-1", "/help")
		assert.NotEmpty(t, out)
		assert.NotEqual(t, "You are muted!", dataMap(t, out[0])["msg"])
	})
}

func TestCommand_SayAndAction(t *testing.T) {
	ctx := context.Background()

	t.Run("say broadcasts like plain speech", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/say hello world")
		require.Len(t, out, 1)
		assert.Equal(t, "alice", out[0].Room)
		assert.Equal(t, EventMessageReceived, out[0].Event)
		assert.Equal(t, "hello world", dataMap(t, out[0])["message"])
	})

	t.Run("me and its aliases broadcast actions", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		for _, name := range []string{"/me", "/action", "/describe"} {
			out := e.HandleMessage(ctx, "conn-1", name+" waves")
			require.Len(t, out, 1)
			assert.Equal(t, EventActionReceived, out[0].Event)
			assert.Equal(t, "waves", dataMap(t, out[0])["message"])
		}
	})
}

func TestCommand_Color(t *testing.T) {
	ctx := context.Background()

	t.Run("changes the color and echoes it back", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/color teal")
		require.Len(t, out, 2)

		assert.Equal(t, "alice", out[0].Room)
		assert.Equal(t, EventActionReceived, out[0].Event)
		action := dataMap(t, out[0])
		assert.Equal(t, "changed their color!", action["message"])
		assert.Equal(t, "#008080", action["color"], "the notice already carries the new color")

		assert.Equal(t, "conn-1", out[1].Conn)
		assert.Equal(t, EventReturnColor, out[1].Event)
		assert.Equal(t, map[string]any{"color": "#008080"}, dataMap(t, out[1]))

		session, _ := e.registry.Get("conn-1")
		assert.Equal(t, 0x008080, session.Color)
	})

	t.Run("rejects bad colors with guidance", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/color notacolor")
		require.Len(t, out, 1)
		assert.Equal(t, EventServer, out[0].Event)
		assert.Equal(t, `Invalid color notacolor specified, try a color name, an HTML color like #ff00ff or "random" for a random color.`, dataMap(t, out[0])["msg"])
	})
}

func TestCommand_Name(t *testing.T) {
	ctx := context.Background()

	t.Run("renames and notifies the room", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		mustLogin(t, e, store, "conn-2", "Carol", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/name Robert")
		require.Len(t, out, 1)
		assert.Equal(t, "alice", out[0].Room)
		assert.Equal(t, EventRename, out[0].Event)
		payload := dataMap(t, out[0])
		assert.Equal(t, "Robert", payload["newname"])
		assert.Equal(t, "Bob", payload["oldname"])
		assert.Equal(t, RoleNormal, payload["type"])

		users := payload["users"].([]User)
		require.Len(t, users, 2)
		assert.Equal(t, "Carol", users[0].Username)
		assert.Equal(t, "Robert", users[1].Username)
	})

	t.Run("rejects taken names", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		mustLogin(t, e, store, "conn-2", "Carol", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/name carol")
		require.Len(t, out, 1)
		assert.Equal(t, "Name has already been taken, try a different name.", dataMap(t, out[0])["msg"])
	})

	t.Run("rejects long names", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/name "+strings.Repeat("x", 30))
		require.Len(t, out, 1)
		assert.Equal(t, "Too long of a name specified, try a different name.", dataMap(t, out[0])["msg"])
	})

	t.Run("rejects blank names", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/name    ")
		require.Len(t, out, 1)
		assert.Equal(t, "Invalid name specified, try a different name.", dataMap(t, out[0])["msg"])
	})
}

func TestCommand_Help(t *testing.T) {
	ctx := context.Background()

	helpLines := func(t *testing.T, out []Delivery) []string {
		t.Helper()
		lines := make([]string, 0, len(out))
		for _, d := range out {
			require.Equal(t, EventServer, d.Event)
			require.Equal(t, "conn-1", d.Conn)
			lines = append(lines, dataMap(t, d)["msg"].(string))
		}
		return lines
	}

	t.Run("normal users see the base commands", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")

		lines := helpLines(t, e.HandleMessage(ctx, "conn-1", "/help"))
		require.Len(t, lines, 6)
		assert.Equal(t, "The following commands are recognized:", lines[0])
		assert.Equal(t, "/name - change your name to a new one", lines[5])
	})

	t.Run("moderators additionally see mute controls", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		e.registry.Mutate("conn-1", func(s *Session) { s.Moderator = true })

		lines := helpLines(t, e.HandleMessage(ctx, "conn-1", "/help"))
		require.Len(t, lines, 8)
		assert.Equal(t, "/mute <user> - mute user", lines[6])
		assert.Equal(t, "/unmute <user> - unmute user", lines[7])
		assert.NotContains(t, lines, "/settings - display all stream settings")
	})

	t.Run("admins see everything", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		lines := helpLines(t, e.HandleMessage(ctx, "conn-1", "/help"))
		require.Len(t, lines, 13)
		assert.Contains(t, lines, "/settings - display all stream settings")
		assert.Contains(t, lines, "/mod <user> - grant moderator privileges to user")
		assert.Equal(t, "/unmute <user> - unmute user", lines[12])
	})
}

func TestCommand_Users(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the roster privately", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLogin(t, e, store, "conn-1", "Bob", "alice")
		mustLogin(t, e, store, "conn-2", "Adam", "alice")

		out := e.HandleMessage(ctx, "conn-1", "/users")
		require.Len(t, out, 1)
		assert.Equal(t, "conn-1", out[0].Conn)
		assert.Equal(t, EventUserList, out[0].Event)

		users := dataMap(t, out[0])["users"].([]User)
		require.Len(t, users, 2)
		assert.Equal(t, "Adam", users[0].Username)
		assert.Equal(t, "Bob", users[1].Username)
	})
}

func TestCommand_Settings(t *testing.T) {
	ctx := context.Background()

	t.Run("shows description and password", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		description := "welcome to my stream"
		password := "hunter2"
		settings := testSettings("alice")
		settings.Description = &description
		settings.StreamPass = &password
		store.On("FindByUsername", mock.Anything, "alice").Return(settings, nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/settings")
		require.Len(t, out, 2)
		assert.Equal(t, "Description: welcome to my stream", dataMap(t, out[0])["msg"])
		assert.Equal(t, "Stream password: hunter2", dataMap(t, out[1])["msg"])
	})

	t.Run("reports a missing password", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("FindByUsername", mock.Anything, "alice").Return(testSettings("alice"), nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/settings")
		require.Len(t, out, 2)
		assert.Equal(t, "Description: ", dataMap(t, out[0])["msg"])
		assert.Equal(t, "No stream password", dataMap(t, out[1])["msg"])
	})

	t.Run("reports lookup failures", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("FindByUsername", mock.Anything, "alice").Return(nil, assert.AnError).Once()

		out := e.HandleMessage(ctx, "conn-1", "/settings")
		require.Len(t, out, 1)
		assert.Equal(t, "Error looking up settings!", dataMap(t, out[0])["msg"])
	})
}

func TestCommand_Moderation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Engine, *mockSettingsStore) {
		t.Helper()
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-admin", "alice")
		mustLogin(t, e, store, "conn-bob", "Bob", "alice")
		return e, store
	}

	t.Run("mute notifies both sides", func(t *testing.T) {
		e, _ := setup(t)

		out := e.HandleMessage(ctx, "conn-admin", "/mute BOB")
		require.Len(t, out, 2)
		assert.Equal(t, "conn-admin", out[0].Conn)
		assert.Equal(t, "User 'bob' has been muted.", dataMap(t, out[0])["msg"])
		assert.Equal(t, "conn-bob", out[1].Conn)
		assert.Equal(t, "You have been muted.", dataMap(t, out[1])["msg"])

		session, _ := e.registry.Get("conn-bob")
		assert.True(t, session.Muted)
	})

	t.Run("muting twice only informs the caller", func(t *testing.T) {
		e, _ := setup(t)

		e.HandleMessage(ctx, "conn-admin", "/mute bob")
		out := e.HandleMessage(ctx, "conn-admin", "/mute bob")
		require.Len(t, out, 1)
		assert.Equal(t, "User 'bob' is already muted.", dataMap(t, out[0])["msg"])

		session, _ := e.registry.Get("conn-bob")
		assert.True(t, session.Muted, "the flag stays set")
	})

	t.Run("unmute restores speech", func(t *testing.T) {
		e, _ := setup(t)

		e.HandleMessage(ctx, "conn-admin", "/mute bob")
		out := e.HandleMessage(ctx, "conn-admin", "/unmute bob")
		require.Len(t, out, 2)
		assert.Equal(t, "User 'bob' has been unmuted.", dataMap(t, out[0])["msg"])
		assert.Equal(t, "You have been unmuted.", dataMap(t, out[1])["msg"])

		session, _ := e.registry.Get("conn-bob")
		assert.False(t, session.Muted)
	})

	t.Run("unmuting an unmuted user only informs the caller", func(t *testing.T) {
		e, _ := setup(t)

		out := e.HandleMessage(ctx, "conn-admin", "/unmute bob")
		require.Len(t, out, 1)
		assert.Equal(t, "User 'bob' is not muted.", dataMap(t, out[0])["msg"])
	})

	t.Run("mod grants moderator", func(t *testing.T) {
		e, _ := setup(t)

		out := e.HandleMessage(ctx, "conn-admin", "/mod bob")
		require.Len(t, out, 2)
		assert.Equal(t, "User 'bob' has been promoted to moderator.", dataMap(t, out[0])["msg"])
		assert.Equal(t, "You have been promoted to moderator.", dataMap(t, out[1])["msg"])

		session, _ := e.registry.Get("conn-bob")
		assert.True(t, session.Moderator)
		assert.Equal(t, RoleModerator, session.Role())
	})

	t.Run("modding a moderator only informs the caller", func(t *testing.T) {
		e, _ := setup(t)

		e.HandleMessage(ctx, "conn-admin", "/mod bob")
		out := e.HandleMessage(ctx, "conn-admin", "/mod bob")
		require.Len(t, out, 1)
		assert.Equal(t, "User 'bob' is already a moderator.", dataMap(t, out[0])["msg"])
	})

	t.Run("demod revokes moderator", func(t *testing.T) {
		e, _ := setup(t)

		e.HandleMessage(ctx, "conn-admin", "/mod bob")
		out := e.HandleMessage(ctx, "conn-admin", "/demod bob")
		require.Len(t, out, 2)
		assert.Equal(t, "User 'bob' has been demoted from moderator.", dataMap(t, out[0])["msg"])
		assert.Equal(t, "You have been demoted from moderator.", dataMap(t, out[1])["msg"])

		session, _ := e.registry.Get("conn-bob")
		assert.False(t, session.Moderator)
	})

	t.Run("demodding a normal user only informs the caller", func(t *testing.T) {
		e, _ := setup(t)

		out := e.HandleMessage(ctx, "conn-admin", "/demod bob")
		require.Len(t, out, 1)
		assert.Equal(t, "User 'bob' is not a moderator.", dataMap(t, out[0])["msg"])
	})

	t.Run("unknown targets are reported", func(t *testing.T) {
		e, _ := setup(t)

		out := e.HandleMessage(ctx, "conn-admin", "/mute ghost")
		require.Len(t, out, 1)
		assert.Equal(t, "Unrecognized user 'ghost'", dataMap(t, out[0])["msg"])
	})

	t.Run("moderators can mute but not mod", func(t *testing.T) {
		e, store := setup(t)
		mustLogin(t, e, store, "conn-carol", "Carol", "alice")
		e.HandleMessage(ctx, "conn-admin", "/mod bob")

		out := e.HandleMessage(ctx, "conn-bob", "/mute carol")
		require.Len(t, out, 2)
		session, _ := e.registry.Get("conn-carol")
		assert.True(t, session.Muted)

		out = e.HandleMessage(ctx, "conn-bob", "/mod carol")
		require.Len(t, out, 1)
		assert.Equal(t, "Unrecognized command '/mod', use '/help' for info.", dataMap(t, out[0])["msg"])
	})
}

func TestCommand_Description(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the transformed description", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := NewEngine(NewRegistry(), NewPresence(), NewBus(), store, strings.ToUpper)

		key := testStreamKey
		store.On("FindByUsername", mock.Anything, "alice").Return(testSettings("alice"), nil).Once()
		e.HandleLogin(ctx, LoginRequest{ConnID: "conn-1", Username: "alice", Streamer: "alice", Key: &key})

		store.On("UpdateDescription", mock.Anything, "alice", "COOL STREAM").Return(nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/desc cool stream")
		require.Len(t, out, 1)
		assert.Equal(t, "Stream description updated!", dataMap(t, out[0])["msg"])
		store.AssertExpectations(t)
	})

	t.Run("reports store failures", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("UpdateDescription", mock.Anything, "alice", "oops").Return(assert.AnError).Once()

		out := e.HandleMessage(ctx, "conn-1", "/description oops")
		require.Len(t, out, 1)
		assert.Equal(t, "Error updating stream description!", dataMap(t, out[0])["msg"])
	})
}

func TestCommand_Password(t *testing.T) {
	ctx := context.Background()

	t.Run("setting a password announces it room wide", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("UpdatePassword", mock.Anything, "alice", mock.MatchedBy(func(p *string) bool {
			return p != nil && *p == "hunter2"
		})).Return(nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/password hunter2")
		require.Len(t, out, 3)

		assert.Equal(t, "conn-1", out[0].Conn)
		assert.Equal(t, `Stream password set to "hunter2"!`, dataMap(t, out[0])["msg"])

		assert.Equal(t, "conn-1", out[1].Conn)
		assert.Equal(t, EventPasswordSet, out[1].Event)
		assert.Equal(t, map[string]any{"password": "hunter2"}, dataMap(t, out[1]))

		assert.Equal(t, "alice", out[2].Room)
		assert.Equal(t, EventPasswordActivated, out[2].Event)
		assert.Equal(t, map[string]any{"username": "alice"}, dataMap(t, out[2]))
		store.AssertExpectations(t)
	})

	t.Run("the password argument is not trimmed", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("UpdatePassword", mock.Anything, "alice", mock.MatchedBy(func(p *string) bool {
			return p != nil && *p == " spaced pass"
		})).Return(nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/password  spaced pass")
		require.Len(t, out, 3)
		assert.Equal(t, `Stream password set to " spaced pass"!`, dataMap(t, out[0])["msg"])
		store.AssertExpectations(t)
	})

	t.Run("a bare password command clears it", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("UpdatePassword", mock.Anything, "alice", (*string)(nil)).Return(nil).Once()

		out := e.HandleMessage(ctx, "conn-1", "/password")
		require.Len(t, out, 2)
		assert.Equal(t, "Stream password removed!", dataMap(t, out[0])["msg"])

		assert.Equal(t, "alice", out[1].Room)
		assert.Equal(t, EventPasswordDeactivated, out[1].Event)
		assert.Equal(t, map[string]any{
			"username": "alice",
			"msg":      "Stream password has been removed.",
		}, dataMap(t, out[1]))
		store.AssertExpectations(t)
	})

	t.Run("reports store failures", func(t *testing.T) {
		store := new(mockSettingsStore)
		e := newTestEngine(store)
		mustLoginAdmin(t, e, store, "conn-1", "alice")

		store.On("UpdatePassword", mock.Anything, "alice", mock.Anything).Return(assert.AnError).Once()

		out := e.HandleMessage(ctx, "conn-1", "/password hunter2")
		require.Len(t, out, 1)
		assert.Equal(t, "Error updating stream password!", dataMap(t, out[0])["msg"])
	})
}
