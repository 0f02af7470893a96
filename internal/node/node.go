// Package node registers a segment device as a user-visible endpoint: a
// stable numeric device id plus a socket node on the filesystem that
// byte-stream clients talk to.
//
// One accepted connection corresponds to one open session. Data sent by the
// client is written to the device as it arrives; when the client shuts down
// its write side, the node performs the session's single read and sends the
// state payload back before closing the connection.
package node

import (
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/hwforge/sevenseg/internal/seg"
)

// Device ids are handed out process-wide, one per registration.
var (
	idMu   sync.Mutex
	nextID = 1
)

func allocID() int {
	idMu.Lock()
	defer idMu.Unlock()
	id := nextID
	nextID++
	return id
}

// Node is a registered device endpoint.
type Node struct {
	dev  *seg.Device
	id   int
	path string
	ln   net.Listener
	log  zerolog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Register allocates a device id and creates the socket node for dev under
// dir. A stale socket left behind by a previous run is removed first; any
// other kind of file occupying the node path is an error.
func Register(dev *seg.Device, dir string, log zerolog.Logger) (*Node, error) {
	path := filepath.Join(dir, dev.Name())
	if err := removeStale(path); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	n := &Node{
		dev:   dev,
		id:    allocID(),
		path:  path,
		ln:    ln,
		log:   log.With().Str("node", path).Logger(),
		conns: map[net.Conn]struct{}{},
	}
	n.log.Info().Int("id", n.id).Msg("device node registered")
	return n, nil
}

func removeStale(path string) error {
	var st unix.Stat_t
	err := unix.Stat(path, &st)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if err := unix.Unlink(path); err != nil {
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}

// ID returns the numeric identity allocated at registration.
func (n *Node) ID() int { return n.id }

// Path returns the filesystem location of the node.
func (n *Node) Path() string { return n.path }

// Serve accepts client connections until the node is closed. Each
// connection is handled on its own goroutine; a transfer fault aborts only
// that session.
func (n *Node) Serve() error {
	for {
		conn, err := n.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !n.track(conn) {
			conn.Close()
			return nil
		}
		go func() {
			defer n.untrack(conn)
			n.serveConn(conn)
		}()
	}
}

// track registers a live connection, Close observes it from that point on.
// It refuses connections accepted in the window between Close starting and
// the listener shutting down.
func (n *Node) track(conn net.Conn) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false
	}
	n.conns[conn] = struct{}{}
	n.wg.Add(1)
	return true
}

func (n *Node) untrack(conn net.Conn) {
	n.mu.Lock()
	delete(n.conns, conn)
	n.mu.Unlock()
	n.wg.Done()
}

func (n *Node) serveConn(conn net.Conn) {
	defer conn.Close()
	sess := n.dev.Open()
	defer sess.Close()

	buf := make([]byte, 64)
	for {
		nr, err := conn.Read(buf)
		if nr > 0 {
			if _, werr := sess.Write(buf[:nr]); werr != nil {
				n.log.Error().Err(werr).Msg("device write failed")
				return
			}
		}
		if err == io.EOF {
			break // client done writing; deliver the state payload
		}
		if errors.Is(err, net.ErrClosed) {
			return // node shutting down
		}
		if err != nil {
			n.log.Warn().Err(err).Msg("transfer fault on receive")
			return
		}
	}

	payload := make([]byte, n.dev.Segments()+1)
	nr, err := sess.Read(payload)
	if err != nil {
		n.log.Error().Err(err).Msg("device read failed")
		return
	}
	if _, err := conn.Write(payload[:nr]); err != nil {
		n.log.Warn().Err(err).Msg("transfer fault on send")
	}
}

// Close stops accepting, disconnects any client still attached and removes
// the node. A client that opened a session but never finished it does not
// hold shutdown up; its connection is cut and the session discarded.
func (n *Node) Close() error {
	n.mu.Lock()
	n.closed = true
	for c := range n.conns {
		c.Close()
	}
	n.mu.Unlock()
	err := n.ln.Close()
	n.wg.Wait()
	n.log.Info().Msg("device node removed")
	return err
}
