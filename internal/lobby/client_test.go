package lobby

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialClient(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// next waits for the next message of kind, skipping others.
func next(t *testing.T, c *Client, kind string) Message {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case m, ok := <-c.Messages():
			require.True(t, ok, "connection closed waiting for %s", kind)
			if m.Kind == kind {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	_, addr := startServer(t, Options{})
	alice := dialClient(t, addr)
	require.NoError(t, alice.RequestList())
	next(t, alice, KindList)
	bob := dialClient(t, addr)
	require.NoError(t, bob.RequestList())
	next(t, bob, KindList)

	assert.ErrorIs(t, alice.Chat("too early"), ErrNotJoined)

	require.NoError(t, alice.Join("alice"))
	assert.Equal(t, "alice", next(t, alice, KindJoin).Name)
	next(t, bob, KindJoin)

	require.NoError(t, bob.Join("bob"))
	m := next(t, alice, KindJoin)
	assert.Equal(t, "bob", m.Name)
	list := next(t, alice, KindList)
	assert.Equal(t, []Player{{Name: "alice", Level: 1}, {Name: "bob", Level: 1}}, list.Players)

	require.NoError(t, bob.Chat("hello: world"))
	chat := next(t, alice, KindChat)
	assert.Equal(t, "bob", chat.Name)
	assert.Equal(t, "hello: world", chat.Text)

	require.NoError(t, alice.Level(4))
	list = next(t, bob, KindList)
	for len(list.Players) == 0 || list.Players[0].Level != 4 {
		list = next(t, bob, KindList)
	}

	require.NoError(t, alice.Ready(true))
	ready := next(t, bob, KindReady)
	assert.Equal(t, "alice", ready.Name)
	assert.True(t, ready.Ready)

	require.NoError(t, bob.Ready(true))
	next(t, alice, KindStart)
	next(t, bob, KindStart)

	require.NoError(t, bob.AskStart())
	next(t, bob, KindStart)

	require.NoError(t, alice.RequestList())
	list = next(t, alice, KindList)
	assert.Equal(t, []Player{{Name: "alice", Level: 4, Ready: true}, {Name: "bob", Level: 1, Ready: true}}, list.Players)

	require.NoError(t, bob.Close())
	leave := next(t, alice, KindLeave)
	assert.Equal(t, "bob", leave.Name)
}

func TestClientRejectsLineBreaks(t *testing.T) {
	_, addr := startServer(t, Options{})
	c := dialClient(t, addr)
	require.NoError(t, c.Join("alice"))
	assert.Error(t, c.Chat("two\nlines"))
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		line string
		want Message
	}{
		{"JOIN:alice", Message{Kind: KindJoin, Name: "alice"}},
		{"LEAVE:bob", Message{Kind: KindLeave, Name: "bob"}},
		{"CHAT:alice:a:b", Message{Kind: KindChat, Name: "alice", Text: "a:b"}},
		{"READY:alice:1", Message{Kind: KindReady, Name: "alice", Ready: true}},
		{"READY:alice:0", Message{Kind: KindReady, Name: "alice"}},
		{"LEVEL:alice:x", Message{Kind: KindLevel, Name: "alice", Level: 1}},
		{"START:", Message{Kind: KindStart}},
		{"LIST:", Message{Kind: KindList}},
		{"LIST:a,b,2,1;,1,0;bad", Message{Kind: KindList, Players: []Player{{Name: "a,b", Level: 2, Ready: true}, {Level: 1}}}},
		{"PING", Message{}},
	}
	for _, tt := range tests {
		got := ParseMessage(tt.line)
		tt.want.Raw = tt.line
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestFormatPlayers(t *testing.T) {
	assert.Equal(t, "alice,3,1;,1,0", FormatPlayers([]Player{{Name: "alice", Level: 3, Ready: true}, {Level: 1}}))
	assert.Equal(t, "", FormatPlayers(nil))
}

func TestClientKeepsLongNamesConnected(t *testing.T) {
	_, addr := startServer(t, Options{})
	a := dialClient(t, addr)
	b := dialClient(t, addr)

	require.NoError(t, a.Join(strings.Repeat("a", 2500)))
	assert.Equal(t, strings.Repeat("a", MaxNameLength), a.Name())
	next(t, a, KindJoin)
	require.NoError(t, b.Join(strings.Repeat("b", 2500)))
	next(t, a, KindJoin)

	require.NoError(t, b.Chat("still here"))
	chat := next(t, a, KindChat)
	assert.Equal(t, "still here", chat.Text)
	assert.NoError(t, a.Err())
}

func TestClientReadsLongListLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	players := make([]Player, 100)
	for i := range players {
		players[i] = Player{Name: strings.Repeat("p", MaxNameLength), Level: 1}
	}
	line := KindList + ":" + FormatPlayers(players)
	require.Greater(t, len(line), MaxLineLength)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(line + "\n"))
	}()

	c := dialClient(t, ln.Addr().String())
	m := next(t, c, KindList)
	assert.Len(t, m.Players, len(players))
}
