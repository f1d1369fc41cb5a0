package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mathblast/mathblast/internal/lobby"
)

var lobbyCmd = &cobra.Command{
	Use:   "lobby",
	Short: "Host or join a local multiplayer lobby",
}

var lobbyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host a lobby; type list, start or quit on stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Lobby.Addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := lobby.NewServer(lobby.Options{MaxClients: cfg.Lobby.MaxClients})
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
		g.Go(func() error {
			err := lobby.RunConsole(gctx, srv, os.Stdin, os.Stdout)
			stop()
			return err
		})
		return g.Wait()
	},
}

var lobbyJoinCmd = &cobra.Command{
	Use:   "join <name>",
	Short: "Join a lobby as <name>",
	Long: `Join a lobby as <name>. Lines typed on stdin are sent as chat.

Commands:
  /ready, /unready   set readiness
  /level <n>         set the level shown to others
  /list              ask for the player list
  /start             ask whether the match can start
  /quit              leave`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Lobby.Addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := lobby.Dial(ctx, addr)
		if err != nil {
			return err
		}
		defer c.Close()
		printSuccess("Connected to %s", addr)
		return runLobbyClient(ctx, c, args[0], os.Stdin, os.Stdout)
	},
}

func init() {
	lobbyServeCmd.Flags().String("addr", "", "listen address (default from config)")
	lobbyJoinCmd.Flags().String("addr", "", "lobby address (default from config)")
	lobbyCmd.AddCommand(lobbyServeCmd, lobbyJoinCmd)
}

var errLeave = errors.New("left lobby")

// runLobbyClient joins as name, prints incoming messages to out and turns
// lines from in into lobby messages until /quit, EOF or disconnect.
func runLobbyClient(ctx context.Context, c *lobby.Client, name string, in io.Reader, out io.Writer) error {
	if err := c.Join(name); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-c.Messages():
			if !ok {
				if err := c.Err(); err != nil {
					return fmt.Errorf("lobby connection: %w", err)
				}
				return nil
			}
			fmt.Fprintln(out, formatLobbyMessage(m))
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := lobbyInput(c, line)
			if errors.Is(err, errLeave) {
				return nil
			}
			if err != nil {
				printError("%v", err)
			}
		}
	}
}

func lobbyInput(c *lobby.Client, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return c.Chat(line)
	}
	cmd, arg, _ := strings.Cut(line[1:], " ")
	switch strings.ToLower(cmd) {
	case "ready":
		return c.Ready(true)
	case "unready":
		return c.Ready(false)
	case "level":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 1 {
			return fmt.Errorf("usage: /level <n>")
		}
		return c.Level(n)
	case "list":
		return c.RequestList()
	case "start":
		return c.AskStart()
	case "quit", "exit":
		return errLeave
	}
	return fmt.Errorf("unknown command /%s", cmd)
}

func formatLobbyMessage(m lobby.Message) string {
	switch m.Kind {
	case lobby.KindJoin:
		return colorize(colorGreen, "+ "+m.Name+" joined")
	case lobby.KindLeave:
		return colorize(colorYellow, "- "+m.Name+" left")
	case lobby.KindChat:
		return colorize(colorBold, m.Name+":") + " " + m.Text
	case lobby.KindReady:
		if m.Ready {
			return m.Name + " is ready"
		}
		return m.Name + " is not ready"
	case lobby.KindLevel:
		return fmt.Sprintf("%s is on level %d", m.Name, m.Level)
	case lobby.KindList:
		if len(m.Players) == 0 {
			return "players: none"
		}
		parts := make([]string, len(m.Players))
		for i, p := range m.Players {
			mark := " "
			if p.Ready {
				mark = "*"
			}
			parts[i] = fmt.Sprintf("%s%s (L%d)", mark, p.Name, p.Level)
		}
		return "players: " + strings.Join(parts, ", ")
	case lobby.KindStart:
		return colorize(colorCyan, "match starting!")
	}
	return m.Raw
}
