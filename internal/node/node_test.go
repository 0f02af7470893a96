package node_test

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hwforge/sevenseg/internal/line"
	"github.com/hwforge/sevenseg/internal/line/fake"
	"github.com/hwforge/sevenseg/internal/node"
	"github.com/hwforge/sevenseg/internal/seg"
)

var segmentPins = []int{17, 18, 27, 22, 23, 24, 25}

func startNode(t *testing.T, name string) (*node.Node, *fake.Driver, *line.Set) {
	t.Helper()
	drv := fake.NewDriver()
	set, err := line.Acquire(drv, segmentPins)
	require.NoError(t, err)
	dev := seg.NewDevice(name, set, zerolog.Nop())
	nd, err := node.Register(dev, t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	go func() {
		_ = nd.Serve()
	}()
	return nd, drv, set
}

// exchange runs one client session through the node and returns the state.
func exchange(t *testing.T, path, pattern string) string {
	t.Helper()
	state, err := node.Exchange(path, []byte(pattern))
	require.NoError(t, err)
	return string(state)
}

func TestNodeLifecycle(t *testing.T) {
	nd, drv, set := startNode(t, "sevenseg")

	// Fresh device reads all dark.
	assert.Equal(t, "0000000", exchange(t, nd.Path(), ""))

	assert.Equal(t, "0000000", exchange(t, nd.Path(), "0000000"))
	assert.Equal(t, "1010110", exchange(t, nd.Path(), "1010110"))

	// A session that writes nothing still observes shared state.
	assert.Equal(t, "1010110", exchange(t, nd.Path(), ""))

	require.NoError(t, nd.Close())
	_, err := net.Dial("unix", nd.Path())
	assert.Error(t, err, "the node must be gone after close")

	set.Release()
	assert.Zero(t, drv.HeldCount())
	for _, id := range segmentPins {
		assert.False(t, drv.Lines[id].Level, "line %d must report off after teardown", id)
	}
}

func TestMultipleWritesPerSession(t *testing.T) {
	nd, drv, set := startNode(t, "sevenseg")
	defer set.Release()
	defer nd.Close()

	conn, err := net.Dial("unix", nd.Path())
	require.NoError(t, err)
	defer conn.Close()

	// Two writes in one session; the last one wins before the read.
	_, err = conn.Write([]byte("1111111"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return drv.Level(17)
	}, time.Second, 5*time.Millisecond, "first chunk must land before the second is sent")
	_, err = conn.Write([]byte("0110010"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "0110010\x00", string(got))
}

func TestToggleReadsModifiesWrites(t *testing.T) {
	nd, _, set := startNode(t, "sevenseg")
	defer set.Release()
	defer nd.Close()

	require.Equal(t, "1010110", exchange(t, nd.Path(), "1010110"))

	state, err := node.Toggle(nd.Path(), []int{0, 3})
	require.NoError(t, err)
	assert.Equal(t, "0011110", string(state))

	// The toggled pattern is what the device now holds.
	assert.Equal(t, "0011110", exchange(t, nd.Path(), ""))

	_, err = node.Toggle(nd.Path(), []int{7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestCloseDisconnectsIdleClient(t *testing.T) {
	nd, _, set := startNode(t, "sevenseg")
	defer set.Release()

	// A client that opens a session and then goes quiet: no write, no
	// half-close. Shutdown must not wait for it.
	conn, err := net.Dial("unix", nd.Path())
	require.NoError(t, err)
	defer conn.Close()

	closed := make(chan error, 1)
	go func() { closed <- nd.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close must not hang on an idle client")
	}

	// The idle client's connection was cut by the node.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestRegisterAllocatesDistinctIDs(t *testing.T) {
	first, _, setA := startNode(t, "sevenseg0")
	defer setA.Release()
	defer first.Close()
	second, _, setB := startNode(t, "sevenseg1")
	defer setB.Release()
	defer second.Close()

	assert.NotEqual(t, first.ID(), second.ID())
}

func TestRegisterReplacesStaleSocket(t *testing.T) {
	drv := fake.NewDriver()
	set, err := line.Acquire(drv, segmentPins)
	require.NoError(t, err)
	defer set.Release()
	dev := seg.NewDevice("sevenseg", set, zerolog.Nop())

	dir := t.TempDir()
	stale := filepath.Join(dir, dev.Name())

	// Leave behind a bound but unserved socket, as a crashed run would.
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrUnix{Name: stale}))
	require.NoError(t, unix.Close(fd))

	nd, err := node.Register(dev, dir, zerolog.Nop())
	require.NoError(t, err)
	nd.Close()
}

func TestRegisterRefusesNonSocketPath(t *testing.T) {
	drv := fake.NewDriver()
	set, err := line.Acquire(drv, segmentPins)
	require.NoError(t, err)
	defer set.Release()
	dev := seg.NewDevice("sevenseg", set, zerolog.Nop())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dev.Name()), []byte("x"), 0644))

	_, err = node.Register(dev, dir, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a socket")
}
