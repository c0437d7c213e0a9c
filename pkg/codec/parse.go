// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"strconv"
	"strings"

	"github.com/tantora/mariawire/lib/util/errors"
)

// parseDate parses the "YYYY-MM-DD" date grammar. The zero-date sentinel
// returns ok == false.
func parseDate(s string) (year, month, day int, ok bool, err error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, false, errors.Wrapf(ErrMalformedValue, "date %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if nums[i], err = strconv.Atoi(p); err != nil {
			return 0, 0, 0, false, errors.Wrapf(ErrMalformedValue, "date %q", s)
		}
	}
	if nums[0] == 0 && nums[1] == 0 && nums[2] == 0 {
		return 0, 0, 0, false, nil
	}
	return nums[0], nums[1], nums[2], true, nil
}

// timestampParts is (year, month, day, hour, minute, second, nanos).
type timestampParts [7]int

// parseTimestamp parses the "YYYY-MM-DD HH:MM:SS[.ffffff]" grammar. The
// zero-timestamp sentinel returns ok == false.
func parseTimestamp(s string) (parts timestampParts, ok bool, err error) {
	datePart, timePart, hasTime := strings.Cut(s, " ")
	y, m, d, dateOK, err := parseDate(datePart)
	if err != nil {
		return parts, false, err
	}
	parts[0], parts[1], parts[2] = y, m, d
	if !hasTime {
		if !dateOK {
			return parts, false, nil
		}
		return parts, true, nil
	}
	sign, hour, minute, second, nanos, err := parseTimeLiteral(timePart)
	if err != nil || sign != 0 {
		return parts, false, errors.Wrapf(ErrMalformedValue, "timestamp %q", s)
	}
	parts[3], parts[4], parts[5], parts[6] = hour, minute, second, nanos
	if !dateOK {
		// zero-date sentinel
		return parts, false, nil
	}
	return parts, true, nil
}

// parseTimeLiteral parses the "[-]H+:MM:SS[.fraction]" grammar shared by
// TIME columns and duration-bearing string columns. sign is 1 for negative
// values.
func parseTimeLiteral(s string) (sign, hours, minutes, seconds, nanos int, err error) {
	if strings.HasPrefix(s, "-") {
		sign = 1
		s = s[1:]
	}
	main, frac, hasFrac := strings.Cut(s, ".")
	fields := strings.SplitN(main, ":", 3)
	if len(fields) != 3 {
		return 0, 0, 0, 0, 0, errors.Wrapf(ErrMalformedValue, "time %q", s)
	}
	if hours, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, 0, 0, 0, errors.Wrapf(ErrMalformedValue, "time %q", s)
	}
	if minutes, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, 0, 0, 0, errors.Wrapf(ErrMalformedValue, "time %q", s)
	}
	if seconds, err = strconv.Atoi(fields[2]); err != nil {
		return 0, 0, 0, 0, 0, errors.Wrapf(ErrMalformedValue, "time %q", s)
	}
	if hasFrac {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.Atoi(frac)
		if err != nil {
			return 0, 0, 0, 0, 0, errors.Wrapf(ErrMalformedValue, "time %q", s)
		}
		for i := len(frac); i < 9; i++ {
			n *= 10
		}
		nanos = n
	}
	return sign, hours, minutes, seconds, nanos, nil
}
