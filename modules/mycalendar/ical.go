// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mycalendar

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/olegiv/ocms-calendar/internal/calendar"
)

// eventNamespace seeds the stable UIDs of exported events.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:mycalendar:event"))

// floatingLayout renders a wall-clock time without a zone. Stored event
// times carry no zone, so they are exported as floating times.
const floatingLayout = "20060102T150405"

func eventUID(id int64) string {
	return uuid.NewSHA1(eventNamespace, []byte(strconv.FormatInt(id, 10))).String()
}

// buildICS renders views as an iCalendar feed. Events flagged all-day or
// without a time become all-day events.
func buildICS(views []calendar.View, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//ocms-calendar//mycalendar//EN")
	cal.SetXWRCalName("Calendar")

	for _, v := range views {
		ev := cal.AddEvent(eventUID(v.ID))
		ev.SetDtStampTime(stamp)
		if !v.UpdatedAt.IsZero() {
			ev.SetModifiedAt(v.UpdatedAt)
		}
		ev.SetSummary(v.Name)
		if v.Excerpt != "" {
			ev.SetDescription(v.Excerpt)
		}

		if v.HasCombinedTime && !v.AllDay {
			ev.SetProperty(ical.ComponentPropertyDtStart, v.CombinedTime.Format(floatingLayout))
		} else {
			ev.SetAllDayStartAt(v.Date)
			ev.SetAllDayEndAt(v.Date.AddDate(0, 0, 1))
		}

		for _, c := range v.Categories {
			ev.AddProperty(ical.ComponentPropertyCategories, c.Name)
		}
	}
	return cal.Serialize()
}
