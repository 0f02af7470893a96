// Package fake provides an in-memory line driver for headless tests.
package fake

import (
	"fmt"
	"sync"

	"github.com/hwforge/sevenseg/internal/line"
)

// Driver records all line traffic and can be programmed to refuse requests
// or configuration, which is how the acquisition rollback paths are
// exercised without hardware.
type Driver struct {
	mu sync.Mutex

	// FailIDs lists ids whose Request fails as if the line were busy.
	FailIDs map[int]bool
	// OutputFailIDs lists ids whose Output call fails after a successful
	// request.
	OutputFailIDs map[int]bool
	// Lines holds every line ever requested, by id.
	Lines map[int]*Line
}

func NewDriver() *Driver {
	return &Driver{Lines: map[int]*Line{}}
}

func (d *Driver) Request(id int) (line.Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailIDs[id] {
		return nil, fmt.Errorf("line %d busy", id)
	}
	if l, ok := d.Lines[id]; ok && l.Held {
		return nil, fmt.Errorf("line %d already held", id)
	}
	l := &Line{drv: d, ID: id, Held: true}
	d.Lines[id] = l
	return l, nil
}

// HeldCount reports how many lines are currently claimed.
func (d *Driver) HeldCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, l := range d.Lines {
		if l.Held {
			n++
		}
	}
	return n
}

// Level reports the current level of the line with the given id. Unlike
// direct field access it is safe while another goroutine drives the line.
func (d *Driver) Level(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.Lines[id]
	return ok && l.Level
}

// Line is one simulated output line. Fields may be inspected, or mutated to
// fake a level change happening behind the manager's back.
type Line struct {
	drv *Driver

	ID       int
	Held     bool
	IsOutput bool
	Level    bool
	Exported bool
	Sets     int
	Gets     int
}

func (l *Line) Output(level bool) error {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	if l.drv.OutputFailIDs[l.ID] {
		return fmt.Errorf("line %d configure failed", l.ID)
	}
	l.IsOutput = true
	l.Level = level
	return nil
}

func (l *Line) Set(level bool) error {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	l.Sets++
	l.Level = level
	return nil
}

func (l *Line) Get() (bool, error) {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	l.Gets++
	return l.Level, nil
}

func (l *Line) Export() {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	l.Exported = true
}

func (l *Line) Unexport() {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	l.Exported = false
}

func (l *Line) Release() {
	l.drv.mu.Lock()
	defer l.drv.mu.Unlock()
	l.Held = false
}
