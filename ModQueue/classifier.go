package ModQueue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ProductionReport/Models"
)

// DayClass says whether a correction concerns today's production.
type DayClass int

const (
	DifferentDay DayClass = iota
	SameDay
)

func (c DayClass) String() string {
	if c == SameDay {
		return "same_day"
	}
	return "different_day"
}

var errNoWorkDate = errors.New("no work date")

// WorkDateText picks the first non-empty of work_date_modified,
// work_date_original and work_date.
func WorkDateText(entry Models.CorrectionEntry) string {
	pair := entry.Field("work_date")
	for _, v := range []Models.FieldValue{pair.Modified, pair.Original, entry.WorkDate} {
		if !v.Blank() {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

// ClassifyOn compares the entry's work date with today. The class is always
// usable; err only explains why DifferentDay was chosen by default.
func ClassifyOn(entry Models.CorrectionEntry, today time.Time) (DayClass, error) {
	text := WorkDateText(entry)
	if text == "" {
		return DifferentDay, errNoWorkDate
	}
	datePart, _, _ := strings.Cut(text, " ")
	datePart = strings.ReplaceAll(datePart, "/", "-")

	workDate, err := time.ParseInLocation("2006-1-2", datePart, today.Location())
	if err != nil {
		return DifferentDay, fmt.Errorf("bad work date %q: %w", datePart, err)
	}

	wy, wm, wd := workDate.Date()
	ty, tm, td := today.Date()
	if wy == ty && wm == tm && wd == td {
		return SameDay, nil
	}
	return DifferentDay, nil
}

// Classifier classifies against the local wall clock and logs entries it
// had to default.
type Classifier struct {
	Now func() time.Time
	Log logrus.FieldLogger
}

// NewClassifier creates a Classifier on time.Now.
func NewClassifier(log logrus.FieldLogger) *Classifier {
	return &Classifier{Now: time.Now, Log: log}
}

func (c *Classifier) Classify(entry Models.CorrectionEntry) DayClass {
	class, err := ClassifyOn(entry, c.Now())
	if err != nil {
		c.Log.WithFields(logrus.Fields{
			"dy_serial_num": entry.DySerialNum,
		}).Warnf("treating as different-day: %v", err)
	}
	return class
}

func (c *Classifier) IsSameDay(entry Models.CorrectionEntry) bool {
	return c.Classify(entry) == SameDay
}

func (c *Classifier) IsDifferentDay(entry Models.CorrectionEntry) bool {
	return c.Classify(entry) == DifferentDay
}
