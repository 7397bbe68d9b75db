// Package server exposes a Tracker over a line-oriented TCP protocol, the
// transport used by the remote SDK client.
package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-bugs/internal/logging"
	"github.com/celerix-dev/celerix-bugs/pkg/schema"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

// MaxConnections bounds concurrently served connections.
const MaxConnections = 100

type Router struct {
	tracker sdk.Tracker
	cert    *tls.Certificate
	log     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	active   map[net.Conn]struct{}
	conns    sync.WaitGroup
}

func NewRouter(t sdk.Tracker) *Router {
	return &Router{tracker: t, log: logging.New("tcp"), active: make(map[net.Conn]struct{})}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// Addr returns the bound address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		listener.Close()
		return nil
	}
	r.listener = listener
	r.mu.Unlock()
	r.log.Info("listening", "addr", listener.Addr().String(), "tls", r.cert != nil)

	semaphore := make(chan struct{}, MaxConnections)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if r.isClosed() {
				return nil
			}
			r.log.Warn("accept failed", "err", err)
			continue
		}

		// Bound the lifetime of a single connection
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		if !r.track(conn) {
			conn.Close()
			return nil
		}
		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				r.untrack(c)
			}()
			r.handleConnection(c)
		}(conn)
	}
}

func (r *Router) track(c net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.active[c] = struct{}{}
	r.conns.Add(1)
	return true
}

func (r *Router) untrack(c net.Conn) {
	c.Close()
	r.mu.Lock()
	delete(r.active, c)
	r.mu.Unlock()
	r.conns.Done()
}

func (r *Router) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (r *Router) Stop() error {
	r.mu.Lock()
	r.closed = true
	l := r.listener
	for c := range r.active {
		c.Close()
	}
	r.mu.Unlock()

	var err error
	if l != nil {
		err = l.Close()
	}
	r.conns.Wait()
	return err
}

func (r *Router) handleConnection(conn net.Conn) {
	reader := bufio.NewReader(conn)
	ctx := context.Background()

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !r.isClosed() {
				r.log.Debug("connection closed", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !r.dispatch(ctx, conn, line) {
			return
		}
	}
}

func reply(w io.Writer, v any, err error) {
	if err != nil {
		msg := strings.ReplaceAll(err.Error(), "\n", " ")
		fmt.Fprintln(w, "ERR", schema.ErrorCode(err), msg)
		return
	}
	res, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(w, "ERR", schema.CodeInternal, "internal error")
		return
	}
	fmt.Fprintln(w, "OK", string(res))
}

func usage(w io.Writer, form string) {
	fmt.Fprintln(w, "ERR", schema.CodeValidation, "usage: "+form)
}

// dispatch runs one command. It returns false when the client asked to quit.
func (r *Router) dispatch(ctx context.Context, w io.Writer, line string) bool {
	command, rest, _ := strings.Cut(line, " ")
	command = strings.ToUpper(command)
	rest = strings.TrimSpace(rest)

	switch command {
	case sdk.CmdPing:
		fmt.Fprintln(w, "PONG")

	case sdk.CmdQuit:
		return false

	case sdk.CmdWhoAmI:
		if rest == "" {
			usage(w, "WHOAMI <actor>")
			return true
		}
		session, err := r.tracker.WhoAmI(ctx, rest)
		reply(w, session, err)

	case sdk.CmdCreate:
		actor, body, ok := strings.Cut(rest, " ")
		if !ok || actor == "" {
			usage(w, "CREATE <actor> <json>")
			return true
		}
		var in schema.NewBugReport
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			fmt.Fprintln(w, "ERR", schema.CodeValidation, "invalid json value")
			return true
		}
		bug, err := r.tracker.CreateBug(ctx, actor, in)
		reply(w, bug, err)

	case sdk.CmdStatus:
		parts := strings.Fields(rest)
		if len(parts) != 3 {
			usage(w, "STATUS <actor> <id> <status>")
			return true
		}
		status, err := schema.ParseStatus(parts[2])
		if err != nil {
			reply(w, nil, &schema.ValidationError{Field: "status", Reason: err.Error()})
			return true
		}
		bug, err := r.tracker.ChangeStatus(ctx, parts[0], parts[1], status)
		reply(w, bug, err)

	case sdk.CmdAssign:
		parts := strings.Fields(rest)
		if len(parts) != 2 {
			usage(w, "ASSIGN <actor> <id>")
			return true
		}
		bug, err := r.tracker.AssignSelf(ctx, parts[0], parts[1])
		reply(w, bug, err)

	case sdk.CmdGet:
		if rest == "" {
			usage(w, "GET <id>")
			return true
		}
		bug, err := r.tracker.GetBug(ctx, rest)
		reply(w, bug, err)

	case sdk.CmdList:
		var filter schema.BugFilter
		if rest != "" {
			if err := json.Unmarshal([]byte(rest), &filter); err != nil {
				fmt.Fprintln(w, "ERR", schema.CodeValidation, "invalid json value")
				return true
			}
		}
		bugs, err := r.tracker.ListBugs(ctx, filter)
		if bugs == nil {
			bugs = []schema.BugReport{}
		}
		reply(w, bugs, err)

	case sdk.CmdAudit:
		if rest == "" {
			usage(w, "AUDIT <id>")
			return true
		}
		entries, err := r.tracker.AuditTrail(ctx, rest)
		reply(w, entries, err)

	case sdk.CmdAnalytics:
		if rest == "" {
			usage(w, "ANALYTICS <actor>")
			return true
		}
		report, err := r.tracker.Analytics(ctx, rest)
		reply(w, report, err)

	case sdk.CmdSummary:
		summary, err := r.tracker.Summary(ctx)
		reply(w, summary, err)

	default:
		fmt.Fprintln(w, "ERR", schema.CodeValidation, "unknown command "+command)
	}
	return true
}
