// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package calendar

import (
	"strconv"
	"strings"
	"time"
)

// FormatTime renders t with a PHP date()-style pattern, the format CMS
// administrators configure ("g:i a", "H:i", "D j M Y"). Unknown letters are
// copied verbatim and a backslash escapes the next character.
//
// Supported: d D j l N S w z F m M n t L Y y a A g G h H i s U.
func FormatTime(t time.Time, pattern string) string {
	var sb strings.Builder
	escaped := false
	for _, r := range pattern {
		if escaped {
			sb.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		sb.WriteString(formatToken(t, r))
	}
	return sb.String()
}

func formatToken(t time.Time, r rune) string {
	switch r {
	// day
	case 'd':
		return t.Format("02")
	case 'D':
		return t.Format("Mon")
	case 'j':
		return strconv.Itoa(t.Day())
	case 'l':
		return t.Format("Monday")
	case 'N':
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return strconv.Itoa(wd)
	case 'S':
		return ordinalSuffix(t.Day())
	case 'w':
		return strconv.Itoa(int(t.Weekday()))
	case 'z':
		return strconv.Itoa(t.YearDay() - 1)

	// month
	case 'F':
		return t.Format("January")
	case 'm':
		return t.Format("01")
	case 'M':
		return t.Format("Jan")
	case 'n':
		return strconv.Itoa(int(t.Month()))
	case 't':
		return strconv.Itoa(DaysIn(t.Month(), t.Year()))

	// year
	case 'L':
		if DaysIn(time.February, t.Year()) == 29 {
			return "1"
		}
		return "0"
	case 'Y':
		return strconv.Itoa(t.Year())
	case 'y':
		return t.Format("06")

	// time
	case 'a':
		return t.Format("pm")
	case 'A':
		return t.Format("PM")
	case 'g':
		return t.Format("3")
	case 'G':
		return strconv.Itoa(t.Hour())
	case 'h':
		return t.Format("03")
	case 'H':
		return t.Format("15")
	case 'i':
		return t.Format("04")
	case 's':
		return t.Format("05")
	case 'U':
		return strconv.FormatInt(t.Unix(), 10)
	}
	return string(r)
}

func ordinalSuffix(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
