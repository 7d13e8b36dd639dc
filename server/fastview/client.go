package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from the page.
	maxMessageSize = 8192

	// The rate at which ele-updates are sent to the page. Updates arriving faster are held
	// and merged, and go out on the next tick.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 500
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// Client publishes idempotent updates to a single page over a websocket.
// Updates arriving faster than the publish rate are merged into one pending update,
// which is sent once the rate allows. By default the latest update replaces the pending
// one; see WithMerge.
type Client[T any] struct {
	updates <-chan T
	sock    *websock
	merge   func(pending, next T) T
}

// NewClient upgrades the request to a websocket and returns a client publishing
// the passed updates to it.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the page.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &Client[T]{
		updates: updates,
		sock:    newWebSocket(ws),
		merge: func(_, next T) T {
			return next
		},
	}, nil
}

// WithMerge sets how an update is folded into one still waiting to be published.
func (cli *Client[T]) WithMerge(merge func(pending, next T) T) *Client[T] {
	cli.merge = merge
	return cli
}

// Sync publishes incoming updates until the page disconnects, the updates are exhausted,
// or ctx is done. A clean disconnect returns nil.
func (cli *Client[T]) Sync(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		// Publishing ends when the updates end; stop the other routines with it.
		err := cli.publish(groupCtx)
		if err == nil {
			err = errPublishDone
		}
		return err
	})
	// Reads block on the connection, so closing it is the only way to unblock them.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.sock.Close()
		return nil
	})

	err := group.Wait()
	if errors.Is(err, errPublishDone) || isClosure(err) {
		return nil
	}
	return err
}

// errPublishDone signals the sync group that the publisher finished normally.
var errPublishDone = errors.New("publisher finished")

// ErrPongDeadlineExceeded is returned when the page stopped answering pings.
var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This requires that readMessages is running to ensure the pong handler is called.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.sock.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.sock.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages drains messages from the page, which keeps control frames flowing.
// Errors returned by websocket reads are permanent, hence any error tears down the client.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.sock.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, _, readErr = ws.ReadMessage()
				return
			})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	var (
		lastSync   time.Time
		pending    T
		hasPending bool
	)
	flush := channerics.NewTicker(ctx.Done(), pubResolution)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			if !ok {
				if hasPending {
					return cli.write(ctx, pending)
				}
				return nil
			}
			if hasPending {
				update = cli.merge(pending, update)
			}
			// Hold updates when receiving too quickly.
			if time.Since(lastSync) < pubResolution {
				pending, hasPending = update, true
				break
			}
			var zero T
			pending, hasPending = zero, false
			lastSync = time.Now()
			if err := cli.write(ctx, update); err != nil {
				return err
			}
		case <-flush:
			if !hasPending || time.Since(lastSync) < pubResolution {
				break
			}
			update := pending
			var zero T
			pending, hasPending = zero, false
			lastSync = time.Now()
			if err := cli.write(ctx, update); err != nil {
				return err
			}
		}
	}
}

func (cli *Client[T]) write(ctx context.Context, update T) error {
	return cli.sock.Write(
		ctx,
		func(ws *websocket.Conn) (writeErr error) {
			if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
				return fmt.Errorf("failed to set deadline: %w", writeErr)
			}
			if writeErr = ws.WriteJSON(update); writeErr != nil {
				writeErr = fmt.Errorf("publish failed: %w", writeErr)
			}
			return
		})
}

func isClosure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}
	return false
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const writeDeadline = time.Second

// websock serializes writes to the websocket and makes reads exclusive, since the
// connection supports one concurrent reader and one concurrent writer.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
	closed   chan struct{}
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
		closed:   make(chan struct{}),
	}
}

// Conn returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame if the writer is free and closes the connection,
// unblocking any pending read.
func (sock *websock) Close() {
	select {
	case <-sock.closed:
		return
	default:
		close(sock.closed)
	}

	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		<-sock.writeSem
	case <-time.After(writeWait):
	}
	sock.ws.Close()
}

// Read performs a read on the internal web socket. Reads block until a message
// arrives, so there is no congestion deadline as there is for writes.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
