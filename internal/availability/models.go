package availability

import (
	"errors"
	"time"
)

// DateLayout is the calendar key format for a day.
const DateLayout = "2006-01-02"

var (
	ErrWindowFull      = errors.New("window full")
	ErrWindowNotFound  = errors.New("window not found")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// WindowTemplate describes one window that a freshly initialized day starts with.
type WindowTemplate struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label" yaml:"label"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

// Window is a capacity bucket on a given day.
// Invariant: 0 <= Booked <= Capacity.
type Window struct {
	Name     string `json:"name" db:"name"`
	Label    string `json:"label" db:"label"`
	Capacity int    `json:"capacity" db:"capacity"`
	Booked   int    `json:"booked" db:"booked"`
}

func (w Window) Available() int {
	if w.Booked >= w.Capacity {
		return 0
	}
	return w.Capacity - w.Booked
}

// Day is the ordered set of windows for one company on one date.
type Day struct {
	CompanyID string   `json:"company_id"`
	Date      string   `json:"date"`
	Windows   []Window `json:"windows"`
}

// WindowAvailability is the read model returned to callers.
type WindowAvailability struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Available int    `json:"available"`
}

// DefaultTemplate returns the morning/afternoon/evening template.
func DefaultTemplate(capacity int) []WindowTemplate {
	return []WindowTemplate{
		{Name: "8-11", Label: "morning, 8 to 11", Capacity: capacity},
		{Name: "12-3", Label: "afternoon, 12 to 3", Capacity: capacity},
		{Name: "3-6", Label: "evening, 3 to 6", Capacity: capacity},
	}
}

// ParseDate validates a YYYY-MM-DD key.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, ErrInvalidArgument
	}
	return t, nil
}

func newDay(companyID, date string, tmpl []WindowTemplate) Day {
	d := Day{CompanyID: companyID, Date: date, Windows: make([]Window, 0, len(tmpl))}
	for _, t := range tmpl {
		d.Windows = append(d.Windows, Window{Name: t.Name, Label: t.Label, Capacity: t.Capacity})
	}
	return d
}
