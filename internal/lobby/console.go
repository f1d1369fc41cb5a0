package lobby

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// RunConsole reads admin commands from r until quit, EOF or ctx is done:
//
//	list         print the player list
//	start        broadcast START: to every client
//	quit, exit   stop reading
func RunConsole(ctx context.Context, srv *Server, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
			case "":
			case "quit", "exit":
				return nil
			case "list":
				players := srv.Players()
				if len(players) == 0 {
					fmt.Fprintln(w, "no players connected")
					continue
				}
				for _, p := range players {
					name := p.Name
					if name == "" {
						name = "(unnamed)"
					}
					ready := "waiting"
					if p.Ready {
						ready = "ready"
					}
					fmt.Fprintf(w, "  %-20s level %-3d %s\n", name, p.Level, ready)
				}
			case "start":
				srv.BroadcastStart()
				fmt.Fprintln(w, "START sent")
			default:
				fmt.Fprintf(w, "unknown command %q (list, start, quit)\n", cmd)
			}
		}
	}
}
