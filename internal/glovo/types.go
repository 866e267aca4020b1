package glovo

import (
	"math"
	"time"
)

const (
	StatusAvailable = "AVAILABLE"
	StatusBooked    = "BOOKED"

	TagRush = "RUSH"
)

// Calendar is the full shift calendar for the account's visibility window.
type Calendar struct {
	Days []Day `json:"days"`
}

type Day struct {
	Date  float64 `json:"date"` // unix seconds, sometimes fractional
	Name  string  `json:"name"` // weekday, e.g. "Monday"
	Zones []Zone  `json:"zonesSchedule"`
}

func (d Day) Time() time.Time {
	sec, frac := math.Modf(d.Date)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Label is the short date used in booking summaries, e.g. "Mon, 02 January 2006".
func (d Day) Label() string {
	return d.Time().Format("Mon, 02 January 2006")
}

type Zone struct {
	Name  string `json:"name"`
	Slots []Slot `json:"slots"`
}

type Slot struct {
	ID        int64  `json:"id"`
	StartTime string `json:"startTimeFormatted"`
	Status    string `json:"status"`
	Tags      Tags   `json:"tags"`
}

type Tags struct {
	Types []string `json:"types"`
}

func (s Slot) HasTag(tag string) bool {
	for _, t := range s.Tags.Types {
		if t == tag {
			return true
		}
	}
	return false
}

// Tokens is the body of a successful /oauth/refresh call.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
