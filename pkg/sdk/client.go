// Package sdk provides the client-side library for the Celerix bug tracker.
// It supports both remote connections via TCP/TLS and local embedded mode.
package sdk

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// Client is a remote client for the bug tracker daemon.
// It implements the Tracker interface.
type Client struct {
	addr    string
	useTLS  bool
	timeout time.Duration
	retries uint64
	log     *slog.Logger

	mu     sync.Mutex // Protects concurrent access to the connection
	conn   net.Conn
	reader *bufio.Reader
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTLS toggles TLS (on by default).
func WithTLS(enabled bool) ClientOption {
	return func(c *Client) { c.useTLS = enabled }
}

// WithTimeout sets the per-command deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a read-only command is retried after a
// transport failure. Mutating commands are never retried.
func WithRetries(n uint64) ClientOption {
	return func(c *Client) { c.retries = n }
}

// Connect establishes a connection to a remote daemon.
func Connect(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		addr:    addr,
		useTLS:  true,
		timeout: 30 * time.Second,
		retries: 2,
		log:     logging.New("sdk"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	var conn net.Conn
	var err error
	if c.useTLS {
		config := &tls.Config{
			InsecureSkipVerify: true, // the daemon uses a self-signed certificate
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	} else {
		conn, err = dialer.Dial("tcp", c.addr)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// exchange sends one line and reads one reply line. Server-side errors and
// context cancellation are permanent; transport errors drop the connection.
func (c *Client) exchange(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", backoff.Permanent(err)
	}
	if c.conn == nil {
		if err := c.reconnect(); err != nil {
			return "", fmt.Errorf("reconnect failed: %w", err)
		}
	}
	conn := c.conn
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	resp, err := func() (string, error) {
		if _, err := fmt.Fprint(conn, cmd+"\n"); err != nil {
			return "", err
		}
		return c.reader.ReadString('\n')
	}()
	if err != nil {
		conn.Close()
		c.conn = nil
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", backoff.Permanent(ctxErr)
		}
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return "", backoff.Permanent(context.DeadlineExceeded)
		}
		return "", err
	}

	resp = strings.TrimRight(resp, "\r\n")
	if rest, ok := strings.CutPrefix(resp, "ERR "); ok {
		code, msg, _ := strings.Cut(rest, " ")
		return "", backoff.Permanent(schema.ErrorFromCode(code, msg))
	}
	return resp, nil
}

func (c *Client) sendAndReceive(ctx context.Context, cmd string, idempotent bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !idempotent {
		resp, err := c.exchange(ctx, cmd)
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return "", perm.Err
		}
		return resp, err
	}

	var resp string
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	err := backoff.RetryNotify(func() error {
		var err error
		resp, err = c.exchange(ctx, cmd)
		return err
	}, policy, func(err error, wait time.Duration) {
		c.log.Warn("command failed, reconnecting", "addr", c.addr, "wait", wait, "err", err)
	})
	return resp, err
}

func decode[T any](resp string) (T, error) {
	var out T
	payload, ok := strings.CutPrefix(resp, "OK ")
	if !ok {
		return out, fmt.Errorf("unexpected response %q", resp)
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, idempotent bool, format string, args ...any) (T, error) {
	resp, err := c.sendAndReceive(ctx, fmt.Sprintf(format, args...), idempotent)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](resp)
}

func token(s string) error {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return &schema.ValidationError{Field: "argument", Reason: fmt.Sprintf("%q must be a single non-empty word", s)}
	}
	return nil
}

func (c *Client) GetBug(ctx context.Context, id string) (schema.BugReport, error) {
	if err := token(id); err != nil {
		return schema.BugReport{}, err
	}
	return call[schema.BugReport](ctx, c, true, "%s %s", CmdGet, id)
}

func (c *Client) ListBugs(ctx context.Context, filter schema.BugFilter) ([]schema.BugReport, error) {
	body, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	return call[[]schema.BugReport](ctx, c, true, "%s %s", CmdList, body)
}

func (c *Client) AuditTrail(ctx context.Context, id string) ([]schema.AuditLog, error) {
	if err := token(id); err != nil {
		return nil, err
	}
	return call[[]schema.AuditLog](ctx, c, true, "%s %s", CmdAudit, id)
}

func (c *Client) CreateBug(ctx context.Context, actor string, in schema.NewBugReport) (schema.BugReport, error) {
	if err := token(actor); err != nil {
		return schema.BugReport{}, err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return schema.BugReport{}, err
	}
	return call[schema.BugReport](ctx, c, false, "%s %s %s", CmdCreate, actor, body)
}

func (c *Client) ChangeStatus(ctx context.Context, actor, id string, status schema.Status) (schema.BugReport, error) {
	for _, arg := range []string{actor, id, string(status)} {
		if err := token(arg); err != nil {
			return schema.BugReport{}, err
		}
	}
	return call[schema.BugReport](ctx, c, false, "%s %s %s %s", CmdStatus, actor, id, status)
}

func (c *Client) AssignSelf(ctx context.Context, actor, id string) (schema.BugReport, error) {
	for _, arg := range []string{actor, id} {
		if err := token(arg); err != nil {
			return schema.BugReport{}, err
		}
	}
	return call[schema.BugReport](ctx, c, false, "%s %s %s", CmdAssign, actor, id)
}

func (c *Client) Analytics(ctx context.Context, actor string) (schema.AnalyticsReport, error) {
	if err := token(actor); err != nil {
		return schema.AnalyticsReport{}, err
	}
	return call[schema.AnalyticsReport](ctx, c, true, "%s %s", CmdAnalytics, actor)
}

func (c *Client) Summary(ctx context.Context) (schema.Summary, error) {
	return call[schema.Summary](ctx, c, true, "%s", CmdSummary)
}

func (c *Client) WhoAmI(ctx context.Context, actor string) (schema.Session, error) {
	if err := token(actor); err != nil {
		return schema.Session{}, err
	}
	return call[schema.Session](ctx, c, true, "%s %s", CmdWhoAmI, actor)
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.sendAndReceive(ctx, CmdPing, true)
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected response %q", resp)
	}
	return nil
}

// Close says goodbye and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprint(c.conn, CmdQuit+"\n")
	err := c.conn.Close()
	c.conn = nil
	return err
}
