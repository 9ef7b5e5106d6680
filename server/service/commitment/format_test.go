package commitment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/samay/plugin/temporal"
	"github.com/hrygo/samay/server/timezone"
)

func TestFormatClockHindi(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{0, 0, "रात 12 बजे"},
		{7, 0, "सुबह 7 बजे"},
		{7, 30, "सुबह 7:30 बजे"},
		{12, 0, "दोपहर 12 बजे"},
		{15, 5, "दोपहर 3:05 बजे"},
		{18, 30, "शाम 6:30 बजे"},
		{22, 0, "रात 10 बजे"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClockHindi(tt.hour, tt.minute))
	}
}

func TestFormatTimeHindi(t *testing.T) {
	ref := time.Date(2026, 2, 13, 10, 0, 0, 0, timezone.IST)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"same day", time.Date(2026, 2, 13, 18, 0, 0, 0, timezone.IST), "शाम 6 बजे"},
		{"tomorrow", time.Date(2026, 2, 14, 7, 0, 0, 0, timezone.IST), "कल सुबह 7 बजे"},
		{"day after", time.Date(2026, 2, 15, 17, 0, 0, 0, timezone.IST), "परसों शाम 5 बजे"},
		{"later this year", time.Date(2026, 12, 25, 19, 0, 0, 0, timezone.IST), "25 दिसंबर शाम 7 बजे"},
		{"next year", time.Date(2027, 1, 1, 9, 0, 0, 0, timezone.IST), "1 जनवरी 2027 सुबह 9 बजे"},
		{"utc input", time.Date(2026, 2, 13, 18, 30, 0, 0, time.UTC), "कल रात 12 बजे"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeHindi(tt.t, ref))
		})
	}
}

func TestFormatDurationHindi(t *testing.T) {
	assert.Equal(t, "45 सेकंड", FormatDurationHindi(45))
	assert.Equal(t, "10 मिनट", FormatDurationHindi(600))
	assert.Equal(t, "1 घंटा", FormatDurationHindi(3600))
	assert.Equal(t, "1 घंटा 30 मिनट", FormatDurationHindi(5400))
	assert.Equal(t, "2 घंटे 30 मिनट", FormatDurationHindi(9000))
}

func TestFormatRecurrenceHindi(t *testing.T) {
	assert.Equal(t, "हर दिन सुबह 7 बजे", FormatRecurrenceHindi(temporal.EveryDay, temporal.Clock{Hour: 7}))
	assert.Equal(t, "हर दिन सुबह 6:30 बजे", FormatRecurrenceHindi(0, temporal.Clock{Hour: 6, Minute: 30}))
	days := temporal.NewWeekdaySet(time.Monday, time.Wednesday)
	assert.Equal(t, "हर सोमवार, बुधवार सुबह 7 बजे", FormatRecurrenceHindi(days, temporal.Clock{Hour: 7}))
}
