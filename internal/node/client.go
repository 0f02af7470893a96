package node

import (
	"fmt"
	"io"
	"net"

	"github.com/hwforge/sevenseg/internal/seg"
)

// Exchange performs one full device session against the node at path:
// pattern (if non-empty) is written, the write side is shut down and the
// state payload is collected. The returned bytes are the segment states
// without the trailing terminator.
func Exchange(path string, pattern []byte) ([]byte, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer conn.Close()
	uc := conn.(*net.UnixConn)

	if len(pattern) > 0 {
		if _, err := uc.Write(pattern); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := uc.CloseWrite(); err != nil {
		return nil, fmt.Errorf("close write %s: %w", path, err)
	}
	payload, err := io.ReadAll(uc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for len(payload) > 0 && payload[len(payload)-1] == seg.Terminator {
		payload = payload[:len(payload)-1]
	}
	return payload, nil
}

// Toggle flips the segments at the given positions: the current state is
// read in one session, the addressed positions are inverted and the new
// pattern is written back in a second session, whose resulting state is
// returned. Positions outside the display are an error here rather than
// silently truncated, since a toggle that did nothing is a surprise.
func Toggle(path string, positions []int) ([]byte, error) {
	state, err := Exchange(path, nil)
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		if pos < 0 || pos >= len(state) {
			return nil, fmt.Errorf("segment %d out of range, display has %d", pos, len(state))
		}
		if state[pos] == '1' {
			state[pos] = '0'
		} else {
			state[pos] = '1'
		}
	}
	return Exchange(path, state)
}
