package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseClockMinutes разбирает строку "HH:MM" в минуты с полуночи.
// Отсутствующие минуты считаются нулём: "10" == "10:00".
func ParseClockMinutes(clock string) (int, error) {
	if clock == "" {
		return 0, fmt.Errorf("empty clock string")
	}

	parts := strings.Split(clock, ":")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid clock string: %q", clock)
	}

	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hours in clock string: %q", clock)
	}

	minutes := 0
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		minutes, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("invalid minutes in clock string: %q", clock)
		}
	}

	return hours*60 + minutes, nil
}

// FormatClock форматирует минуты с полуночи обратно в "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeDate приводит дату к календарному дню YYYY-MM-DD в таймзоне клиники.
// Принимает RFC3339, дату со временем без таймзоны и голую дату.
func NormalizeDate(str string, location *time.Location) (string, error) {
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		parsed, err = time.ParseInLocation("2006-01-02T15:04:05", str, location)
		if err != nil {
			parsed, err = time.ParseInLocation(DateLayout, str, location)
			if err != nil {
				return "", fmt.Errorf("failed to parse date: %q", str)
			}
		}
	}

	return parsed.In(location).Format(DateLayout), nil
}
