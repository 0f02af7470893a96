// Package seg implements the byte-stream transfer protocol of the
// seven-segment device on top of an acquired line set.
//
// Writing drives the segments: position i of the payload maps to segment i,
// '1' means lit and anything else means dark. Reading returns the live
// segment states as '0'/'1' characters followed by a NUL terminator, once
// per session.
package seg

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/hwforge/sevenseg/internal/line"
)

// Terminator marks the end of meaningful content in a segment message.
const Terminator = 0x00

// Device exposes a line set as a byte-stream device. Every session opened
// from the same device acts on the same lines; only the single-shot read
// flag is per-session.
type Device struct {
	name string
	set  *line.Set
	log  zerolog.Logger
}

func NewDevice(name string, set *line.Set, log zerolog.Logger) *Device {
	return &Device{
		name: name,
		set:  set,
		log:  log.With().Str("device", name).Logger(),
	}
}

// Name returns the device name, used for the registered node.
func (d *Device) Name() string { return d.name }

// Segments returns the number of segment lines behind the device.
func (d *Device) Segments() int { return d.set.Len() }

// Open starts a transfer session. It never fails and touches no hardware.
func (d *Device) Open() *Session {
	d.log.Debug().Msg("session opened")
	return &Session{dev: d}
}

// Session is the per-open state of the device: a single flag recording
// whether the state payload has already been delivered.
type Session struct {
	dev      *Device
	consumed bool
}

// Write decodes p as segment levels. Scanning starts at position 0 and
// stops at the first terminator byte or after the last segment, whichever
// comes first; everything beyond is accepted and ignored, so oversized or
// short input is never an error. The returned count is always len(p), the
// full requested length, even when fewer bytes were interpreted.
func (s *Session) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := s.dev.set.Len()
	if len(p) < n {
		n = len(p)
	}
	for i := 0; i < n && p[i] != Terminator; i++ {
		if err := s.dev.set.SetLevel(i, p[i] == '1'); err != nil {
			return 0, err
		}
	}
	s.dev.log.Debug().Int("len", len(p)).Msg("received segment levels")
	return len(p), nil
}

// Read encodes the live segment levels into p, exactly once per session.
// The payload is always Segments()+1 bytes: one '0'/'1' character per
// segment plus the terminator; a larger p changes nothing. After a
// successful read the session only returns io.EOF. A destination smaller
// than the payload fails with io.ErrShortBuffer and leaves the session
// readable, so the caller may retry with a bigger buffer.
func (s *Session) Read(p []byte) (int, error) {
	if s.consumed {
		return 0, io.EOF
	}
	n := s.dev.set.Len()
	buf := make([]byte, n+1)
	for i := 0; i < n; i++ {
		level, err := s.dev.set.GetLevel(i)
		if err != nil {
			return 0, err
		}
		if level {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	buf[n] = Terminator
	if len(p) < len(buf) {
		return 0, io.ErrShortBuffer
	}
	copy(p, buf)
	s.consumed = true
	s.dev.log.Debug().Int("len", len(buf)).Msg("sent segment levels")
	return len(buf), nil
}

// Close discards the session. Line levels persist at whatever the last
// write left them.
func (s *Session) Close() error {
	s.dev.log.Debug().Msg("session closed")
	return nil
}
