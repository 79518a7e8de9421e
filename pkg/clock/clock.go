// Package clock implements the signed two-field (day, millisecond) clock
// arithmetic used to schedule and time out tasks.
package clock

const (
	MsPerSecond = 1000
	SecPerDay   = 86400
	MsPerDay    = MsPerSecond * SecPerDay
)

// Clock is a (day, millisecond-of-day) pair. Negative values are valid and
// appear transiently during subtraction; Adjust reconciles the sign of the
// two fields.
type Clock struct {
	Day int16
	Ms  int32
}

// New builds a Clock from raw fields without adjusting them.
func New(day int16, ms int32) Clock {
	return Clock{Day: day, Ms: ms}
}

// Adjust reconciles Day/Ms so that their signs agree, assuming the value is
// at most a day or two out of range (no overflow handling beyond that).
func (c *Clock) Adjust() {
	for c.Ms >= MsPerDay {
		c.Ms -= MsPerDay
		c.Day++
	}
	if c.Day > 0 && c.Ms < 0 {
		c.Day--
		c.Ms += MsPerDay
	} else if c.Day < 0 && c.Ms > 0 {
		c.Day++
		c.Ms -= MsPerDay
	}
}

// Add returns c+other, adjusted.
func (c Clock) Add(other Clock) Clock {
	result := New(c.Day+other.Day, c.Ms+other.Ms)
	result.Adjust()
	return result
}

// Sub returns c-other, adjusted.
func (c Clock) Sub(other Clock) Clock {
	result := New(c.Day-other.Day, c.Ms-other.Ms)
	result.Adjust()
	return result
}

// Direction reports the sign of an already-adjusted clock: -1, 0, or 1.
func (c Clock) Direction() int {
	if c.Day == 0 && c.Ms == 0 {
		return 0
	}
	if c.Day > 0 {
		return 1
	}
	if c.Day == 0 {
		if c.Ms > 0 {
			return 1
		}
		return -1
	}
	return -1
}
