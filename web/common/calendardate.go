package common

import (
	"time"

	"github.com/maeven-tapa/eals/utils"
)

// CalendarDate is a request field holding a yyyy-MM-dd date, such as a date
// of birth. It decodes to midnight UTC; an empty string leaves it zero.
type CalendarDate struct {
	Time time.Time
}

func (d *CalendarDate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Time = time.Time{}
		return nil
	}
	t, err := utils.ParseDate(string(text))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d CalendarDate) MarshalText() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte{}, nil
	}
	return []byte(utils.FormatDate(d.Time)), nil
}
