// Package line manages a fixed, ordered set of hardware output lines with
// all-or-nothing acquisition and guaranteed release.
package line

// Driver hands out exclusive ownership of individual output lines. It is the
// boundary to the underlying GPIO machinery; once a line has been requested
// successfully the driver is assumed reliable.
type Driver interface {
	// Request claims exclusive ownership of the line with the given id.
	Request(id int) (Line, error)
}

// Line is a single claimed hardware output line.
type Line interface {
	// Output configures the line as an output driven at the given level.
	Output(level bool) error
	// Set drives the line to the given level.
	Set(level bool) error
	// Get samples the live level of the line.
	Get() (bool, error)
	// Export publishes the line to any user-visible control surface the
	// driver offers. Best effort; failures are ignored.
	Export()
	// Unexport withdraws the line from the control surface. Best effort.
	Unexport()
	// Release returns ownership of the line to the driver.
	Release()
}
