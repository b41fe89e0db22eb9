package parsers

import (
	"errors"
	"testing"
	"time"

	"linkedevents/apierr"
)

func TestParseHours(t *testing.T) {
	h, m, err := ParseHours("14:30", "starts_after")
	if err != nil || h != 14 || m != 30 {
		t.Fatalf("expected 14:30, got %d:%d err=%v", h, m, err)
	}

	h, m, err = ParseHours("14", "starts_after")
	if err != nil || h != 14 || m != 0 {
		t.Fatalf("expected 14:00, got %d:%d err=%v", h, m, err)
	}

	if _, _, err := ParseHours("25", "starts_after"); err == nil {
		t.Fatal("expected error for hour 25")
	}
	if _, _, err := ParseHours("12:60", "starts_after"); err == nil {
		t.Fatal("expected error for minute 60")
	}
	if _, _, err := ParseHours("12:30:00", "starts_after"); err == nil {
		t.Fatal("expected error for three components")
	}

	var pe *apierr.ParamError
	_, _, err = ParseHours("x", "ends_before")
	if !errors.As(err, &pe) || pe.Param != "ends_before" {
		t.Fatalf("expected ParamError naming ends_before, got %v", err)
	}
}

func TestParseBool(t *testing.T) {
	for _, val := range []string{"true", "TRUE", "True"} {
		b, err := ParseBool(val, "is_free")
		if err != nil || !b {
			t.Fatalf("%q: expected true, got %v err=%v", val, b, err)
		}
	}
	b, err := ParseBool("false", "is_free")
	if err != nil || b {
		t.Fatalf("expected false, got %v err=%v", b, err)
	}
	if _, err := ParseBool("1", "is_free"); err == nil {
		t.Fatal("expected error for 1")
	}
	if _, err := ParseBool("", "is_free"); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestParseDigit(t *testing.T) {
	n, err := ParseDigit("42", "days")
	if err != nil || n != 42 {
		t.Fatalf("expected 42, got %d err=%v", n, err)
	}
	if _, err := ParseDigit("4x", "days"); err == nil {
		t.Fatal("expected error for 4x")
	}
}

func TestParseDurationString(t *testing.T) {
	cases := map[string]int64{
		"1d":   86400,
		"180m": 10800,
		"2h":   7200,
		"90s":  90,
		"90":   90,
	}
	for val, want := range cases {
		got, err := ParseDurationString(val, "max_duration")
		if err != nil || got != want {
			t.Fatalf("%q: expected %d, got %d err=%v", val, want, got, err)
		}
	}
	for _, val := range []string{"bogus", "", "d", "-5s"} {
		if _, err := ParseDurationString(val, "max_duration"); err == nil {
			t.Fatalf("%q: expected error", val)
		}
	}
}

func TestParseTime(t *testing.T) {
	now := time.Date(2024, 5, 14, 15, 4, 5, 0, time.UTC)

	got, err := ParseTime("2024-05-01T12:00:00Z", "start", true, now)
	if err != nil || !got.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("ISO timestamp: got %v err=%v", got, err)
	}

	got, err = ParseTime("2024-05-01", "start", true, now)
	if err != nil || !got.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("plain start date: got %v err=%v", got, err)
	}

	// A plain date as an end bound covers the whole day.
	got, err = ParseTime("2024-05-01", "end", false, now)
	if err != nil || !got.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("plain end date: got %v err=%v", got, err)
	}

	got, err = ParseTime("today", "start", true, now)
	if err != nil || !got.Equal(time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today as start: got %v err=%v", got, err)
	}

	got, err = ParseTime("today", "end", false, now)
	if err != nil || !got.Equal(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today as end: got %v err=%v", got, err)
	}

	if _, err := ParseTime("not-a-date", "start", true, now); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestFuzzyMatching(t *testing.T) {
	re, err := TermsToRegexp([]string{"konsertti"})
	if err != nil {
		t.Fatal(err)
	}
	// two substitutions tolerated for a long term
	for _, text := range []string{"konsertti", "KONSERTTI tänään", "konzertti", "kanzertti"} {
		if !re.MatchString(text) {
			t.Fatalf("expected %q to match", text)
		}
	}
	if re.MatchString("jumppa") {
		t.Fatal("unrelated word must not match")
	}

	// short terms match exactly
	re, err = TermsToRegexp([]string{"ice"})
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("nice ice sculpture") {
		t.Fatal("expected exact substring match")
	}
	if re.MatchString("ace") {
		t.Fatal("short terms must not fuzz")
	}

	// several terms are unioned
	re, err = TermsToRegexp([]string{"ooppera", "baletti"})
	if err != nil {
		t.Fatal(err)
	}
	if !re.MatchString("balatti-ilta") {
		t.Fatal("expected one-edit match on second term")
	}

	// all-empty input yields no matcher
	re, err = TermsToRegexp([]string{" ", ""})
	if err != nil || re != nil {
		t.Fatalf("expected nil matcher, got %v err=%v", re, err)
	}
}
