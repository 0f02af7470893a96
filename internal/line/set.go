package line

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrOutOfRange reports a segment position outside the acquired set.
	ErrOutOfRange = errors.New("line position out of range")
	// ErrReleased reports use of a set after Release.
	ErrReleased = errors.New("line set released")
)

// held pairs a claimed line with the level it was last commanded to.
type held struct {
	id    int
	line  Line
	level atomic.Bool
}

// Set is an ordered collection of acquired output lines, indexed by segment
// position. Either every requested line is held or none is; a Set never
// exists in a partially acquired state.
type Set struct {
	lines []*held
}

// Acquire claims every id in order, configures each as an output driven low
// and exports it. If any request fails, the lines claimed earlier in the
// same call are released before the request error is returned, so a failed
// acquisition holds nothing. The rollback never masks the original error.
func Acquire(drv Driver, ids []int) (*Set, error) {
	s := &Set{lines: make([]*held, 0, len(ids))}
	for _, id := range ids {
		l, err := drv.Request(id)
		if err != nil {
			s.unwind()
			return nil, fmt.Errorf("request line %d: %w", id, err)
		}
		if err := l.Output(false); err != nil {
			l.Release()
			s.unwind()
			return nil, fmt.Errorf("configure line %d: %w", id, err)
		}
		l.Export()
		s.lines = append(s.lines, &held{id: id, line: l})
	}
	return s, nil
}

func (s *Set) unwind() {
	for _, h := range s.lines {
		h.line.Release()
	}
	s.lines = nil
}

// Len returns the number of lines held.
func (s *Set) Len() int { return len(s.lines) }

// SetLevel drives the line at pos and records the commanded level. Only the
// single addressed line is touched.
func (s *Set) SetLevel(pos int, level bool) error {
	if s.lines == nil {
		return ErrReleased
	}
	if pos < 0 || pos >= len(s.lines) {
		return fmt.Errorf("set level at %d: %w", pos, ErrOutOfRange)
	}
	h := s.lines[pos]
	if err := h.line.Set(level); err != nil {
		return fmt.Errorf("set line %d: %w", h.id, err)
	}
	h.level.Store(level)
	return nil
}

// GetLevel samples the live level of the line at pos, not the recorded one.
func (s *Set) GetLevel(pos int) (bool, error) {
	if s.lines == nil {
		return false, ErrReleased
	}
	if pos < 0 || pos >= len(s.lines) {
		return false, fmt.Errorf("get level at %d: %w", pos, ErrOutOfRange)
	}
	return s.lines[pos].line.Get()
}

// Levels returns the last commanded level of every line in position order.
func (s *Set) Levels() []bool {
	out := make([]bool, len(s.lines))
	for i, h := range s.lines {
		out[i] = h.level.Load()
	}
	return out
}

// Release drives every line low, withdraws it from the control surface and
// returns it to the driver. The set is empty afterwards; operations on a
// released set fail with ErrReleased and releasing again is a no-op.
func (s *Set) Release() {
	for _, h := range s.lines {
		_ = h.line.Set(false)
		h.line.Unexport()
		h.line.Release()
	}
	s.lines = nil
}
