package line

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Legacy sysfs control files. Export/unexport are best effort: the files
// are absent on kernels built without the sysfs GPIO interface.
const (
	sysfsExport   = "/sys/class/gpio/export"
	sysfsUnexport = "/sys/class/gpio/unexport"
)

// GPIODriver requests lines from the host GPIO registry. Lines are addressed
// by their BCM numbers.
type GPIODriver struct {
	mu      sync.Mutex
	claimed map[int]bool
}

// NewGPIODriver initialises the periph host and returns a driver backed by
// it. host.Init is safe to call more than once, so constructing several
// drivers is harmless.
func NewGPIODriver() (*GPIODriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	return &GPIODriver{claimed: map[int]bool{}}, nil
}

// Request looks up GPIO<id> and claims it. Requesting an id that is already
// held fails until the line is released.
func (d *GPIODriver) Request(id int) (Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed[id] {
		return nil, fmt.Errorf("line %d: busy", id)
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", id))
	if p == nil {
		return nil, fmt.Errorf("line %d: no such pin", id)
	}
	d.claimed[id] = true
	return &periphLine{drv: d, id: id, pin: p}, nil
}

type periphLine struct {
	drv *GPIODriver
	id  int
	pin gpio.PinIO
}

func (l *periphLine) Output(level bool) error {
	return l.pin.Out(gpio.Level(level))
}

func (l *periphLine) Set(level bool) error {
	return l.pin.Out(gpio.Level(level))
}

func (l *periphLine) Get() (bool, error) {
	return l.pin.Read() == gpio.High, nil
}

func (l *periphLine) Export()   { sysfsWrite(sysfsExport, l.id) }
func (l *periphLine) Unexport() { sysfsWrite(sysfsUnexport, l.id) }

func (l *periphLine) Release() {
	l.drv.mu.Lock()
	delete(l.drv.claimed, l.id)
	l.drv.mu.Unlock()
}

func sysfsWrite(path string, id int) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(strconv.Itoa(id))
}
