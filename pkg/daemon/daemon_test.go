package daemon

import (
	"testing"
)

func TestParseCronSchedule(t *testing.T) {
	valid := []string{
		"0 3 * * *",
		"*/15 * * * *",
		"30 2 * * 0",
	}
	for _, schedule := range valid {
		if err := ParseCronSchedule(schedule); err != nil {
			t.Errorf("ParseCronSchedule(%q): %v", schedule, err)
		}
	}

	invalid := []string{
		"",
		"not a schedule",
		"0 3 * *",
		"61 * * * *",
	}
	for _, schedule := range invalid {
		if err := ParseCronSchedule(schedule); err == nil {
			t.Errorf("ParseCronSchedule(%q) should fail", schedule)
		}
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	d := New("not a schedule", func() error { return nil })
	if err := d.Start(); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestStartAndStop(t *testing.T) {
	d := New("0 3 * * *", func() error { return nil })
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
}
