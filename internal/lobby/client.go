package lobby

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotJoined is returned by Client methods that need a name before Join.
var ErrNotJoined = errors.New("lobby: join before sending player messages")

// Client is a connection to a lobby server. Incoming lines are parsed and
// delivered on Messages until the connection closes.
type Client struct {
	conn         net.Conn
	writeTimeout time.Duration
	msgs         chan Message

	mu   sync.Mutex
	name string

	errMu sync.Mutex
	err   error
}

// Dial connects to the lobby at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to lobby %s: %w", addr, err)
	}
	c := &Client{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
		msgs:         make(chan Message, 64),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.msgs)
	sc := bufio.NewScanner(c.conn)
	sc.Buffer(make([]byte, 0, 512), maxListLine)
	for sc.Scan() {
		c.msgs <- ParseMessage(sc.Text())
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
	}
}

// Messages returns the channel of incoming messages. It is closed when the
// connection ends.
func (c *Client) Messages() <-chan Message { return c.msgs }

// Err returns the read error that ended the connection, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Name returns the name sent with Join.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) send(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("lobby: message contains a line break")
	}
	if len(line) > MaxLineLength {
		return fmt.Errorf("lobby: message longer than %d bytes", MaxLineLength)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) named(kind, value string) error {
	name := c.Name()
	if name == "" {
		return ErrNotJoined
	}
	return c.send(kind + ":" + name + ":" + value)
}

// Join announces name to the lobby. Names longer than MaxNameLength runes
// are cut.
func (c *Client) Join(name string) error {
	name = ClampName(name)
	if name == "" {
		return errors.New("lobby: empty name")
	}
	if err := c.send(KindJoin + ":" + name); err != nil {
		return err
	}
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	return nil
}

func (c *Client) Chat(text string) error { return c.named(KindChat, text) }

func (c *Client) Ready(ready bool) error { return c.named(KindReady, boolDigit(ready)) }

func (c *Client) Level(level int) error { return c.named(KindLevel, strconv.Itoa(level)) }

// RequestList asks the server for the player list.
func (c *Client) RequestList() error { return c.send(cmdListQuery) }

// AskStart asks the server whether the match can start.
func (c *Client) AskStart() error { return c.send(cmdStartQuery) }
