// Package lobby implements the local multiplayer lobby: a line-oriented TCP
// server that tracks players, relays chat and signals the start of a match,
// and a client for it.
//
// Every message is one UTF-8 line terminated by '\n':
//
//	JOIN:<name>           set this connection's name, broadcast to all
//	CHAT:<name>:<text>    relayed as-is
//	READY:<name>:<0|1>    set readiness; START: follows once all are ready
//	LEVEL:<name>:<n>      set the level shown in the player list
//	LIST?                 reply LIST:<players> to the sender only
//	START?                reply START: to the sender if all are ready
//
// The server additionally sends LIST:<players>, LEAVE:<name> and START:.
// A player list is "name,level,ready" entries joined by ';'.
package lobby

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Message kinds.
const (
	KindJoin  = "JOIN"
	KindChat  = "CHAT"
	KindReady = "READY"
	KindLevel = "LEVEL"
	KindList  = "LIST"
	KindStart = "START"
	KindLeave = "LEAVE"
	KindOther = ""
)

const (
	cmdListQuery  = "LIST?"
	cmdStartQuery = "START?"
	lineStart     = "START:"

	// MaxLineLength is the longest line accepted, excluding the newline.
	MaxLineLength = 4096
	// MaxNameLength caps player names, in runes.
	MaxNameLength = 64
	// maxListLine bounds the server's LIST lines, which grow with the
	// number of players.
	maxListLine = 1 << 20
)

// Player is one entry of the lobby's player list.
type Player struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
	Ready bool   `json:"ready"`
}

// Message is a parsed protocol line.
type Message struct {
	Kind    string
	Name    string
	Text    string
	Ready   bool
	Level   int
	Players []Player
	Raw     string
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FormatPlayers serialises a player list.
func FormatPlayers(players []Player) string {
	parts := make([]string, len(players))
	for i, p := range players {
		parts[i] = p.Name + "," + strconv.Itoa(p.Level) + "," + boolDigit(p.Ready)
	}
	return strings.Join(parts, ";")
}

// ParsePlayers is the inverse of FormatPlayers. The level and ready fields
// are read from the right so names may contain commas. Malformed entries
// are skipped.
func ParsePlayers(s string) []Player {
	if s == "" {
		return nil
	}
	var out []Player
	for _, entry := range strings.Split(s, ";") {
		i := strings.LastIndexByte(entry, ',')
		if i < 0 {
			continue
		}
		j := strings.LastIndexByte(entry[:i], ',')
		if j < 0 {
			continue
		}
		level, err := strconv.Atoi(entry[j+1 : i])
		if err != nil {
			continue
		}
		out = append(out, Player{Name: entry[:j], Level: level, Ready: entry[i+1:] == "1"})
	}
	return out
}

// ParseMessage decodes one line (without its newline).
func ParseMessage(line string) Message {
	m := Message{Raw: line}
	kind, rest, ok := strings.Cut(line, ":")
	if !ok {
		return m
	}
	switch kind {
	case KindJoin, KindLeave:
		m.Kind, m.Name = kind, rest
	case KindChat:
		m.Kind = kind
		m.Name, m.Text, _ = strings.Cut(rest, ":")
	case KindReady:
		m.Kind = kind
		var v string
		m.Name, v, _ = strings.Cut(rest, ":")
		m.Ready = parseReady(v)
	case KindLevel:
		m.Kind = kind
		var v string
		m.Name, v, _ = strings.Cut(rest, ":")
		m.Level = parseLevel(v)
	case KindList:
		m.Kind = kind
		m.Players = ParsePlayers(rest)
	case KindStart:
		m.Kind = kind
	}
	return m
}

// ClampName trims name and cuts it to MaxNameLength runes.
func ClampName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	runes := []rune(name)
	return strings.TrimSpace(string(runes[:MaxNameLength]))
}

// parseReady treats any non-zero integer as ready.
func parseReady(v string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return err == nil && n != 0
}

func parseLevel(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 1
	}
	return n
}
