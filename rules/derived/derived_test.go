package derived

import (
	"testing"
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

func ptr(i int) *int { return &i }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDD04(t *testing.T) {
	earliest := &model.LearningDelivery{AimType: 1, ProgType: ptr(1), FworkCode: ptr(1), PwayCode: ptr(1), LearnStartDate: day(2015, 1, 1)}
	latest := &model.LearningDelivery{AimType: 1, ProgType: ptr(1), FworkCode: ptr(1), PwayCode: ptr(1), LearnStartDate: day(2017, 1, 1)}
	otherPathway := &model.LearningDelivery{AimType: 1, ProgType: ptr(1), FworkCode: ptr(1), PwayCode: ptr(2), LearnStartDate: day(2010, 1, 1)}

	got := DD04([]*model.LearningDelivery{latest, otherPathway, earliest}, latest)
	if got == nil || !got.Equal(day(2015, 1, 1)) {
		t.Errorf("DD04() = %v, want 2015-01-01", got)
	}
}

func TestDD04NoProgramme(t *testing.T) {
	d := &model.LearningDelivery{AimType: 3, LearnStartDate: day(2017, 1, 1)}
	if got := DD04([]*model.LearningDelivery{d}, d); got != nil {
		t.Errorf("DD04() = %v, want nil", got)
	}
	if got := DD04(nil, nil); got != nil {
		t.Errorf("DD04(nil) = %v, want nil", got)
	}
}

func TestEarliestStartDateFor(t *testing.T) {
	deliveries := []*model.LearningDelivery{
		{AimType: 1, ProgType: ptr(1), FworkCode: ptr(1), PwayCode: ptr(1), LearnStartDate: day(2017, 1, 1)},
		{AimType: 1, ProgType: ptr(1), FworkCode: ptr(1), PwayCode: ptr(2)},
	}

	tests := []struct {
		name string
		pway int
		want *time.Time
	}{
		{"single match", 1, &[]time.Time{day(2017, 1, 1)}[0]},
		{"no match", 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EarliestStartDateFor(deliveries, 1, 1, 1, tt.pway)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestDD06(t *testing.T) {
	deliveries := []*model.LearningDelivery{
		{LearnStartDate: day(2017, 9, 1)},
		nil,
		{LearnStartDate: day(2016, 8, 1)},
	}
	got := DD06(deliveries)
	if got == nil || !got.Equal(day(2016, 8, 1)) {
		t.Errorf("DD06() = %v, want 2016-08-01", got)
	}
	if DD06(nil) != nil {
		t.Error("DD06(nil) should be nil")
	}
}

func TestDD07(t *testing.T) {
	tests := []struct {
		progType *int
		want     bool
	}{
		{ptr(2), true},
		{ptr(25), true},
		{ptr(24), false},
		{ptr(99), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := DD07(tt.progType); got != tt.want {
			t.Errorf("DD07(%v) = %v, want %v", tt.progType, got, tt.want)
		}
	}
}

func TestYearsBetween(t *testing.T) {
	tests := []struct {
		start, end time.Time
		want       int
	}{
		{day(2000, 8, 1), day(2017, 8, 1), 17},
		{day(2000, 8, 1), day(2017, 7, 31), 16},
		{day(2000, 2, 29), day(2019, 2, 28), 18},
		{day(2000, 2, 29), day(2019, 3, 1), 19},
	}
	for _, tt := range tests {
		if got := YearsBetween(tt.start, tt.end); got != tt.want {
			t.Errorf("YearsBetween(%s, %s) = %d, want %d", tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(day(2017, 7, 31), day(2017, 8, 1).Add(20*time.Hour)); got != 1 {
		t.Errorf("DaysBetween() = %d, want 1", got)
	}
}
