package filecache

import (
	"errors"
	"testing"
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

func TestFileNameUKPRN(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     *int
	}{
		{"standard name", "ILR-10006341-1718-20170828-101010-01.xml", intPtr(10006341)},
		{"with directory", "/data/in/ILR-10006341-1718-20170828-101010-01.xml", intPtr(10006341)},
		{"non numeric", "ILR-ABC-1718.xml", nil},
		{"no dash", "ILR.xml", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromData(Data{FileName: tt.fileName}).FileNameUKPRN()
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("FileNameUKPRN() = %d, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("FileNameUKPRN() = nil, want %d", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("FileNameUKPRN() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestCheckFileName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		wantErr  bool
	}{
		{"matching", "ILR-10006341-1718-20170828-101010-01.xml", false},
		{"other provider", "ILR-10000000-1718-20170828-101010-01.xml", true},
		{"no provider in name", "submission.xml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromData(Data{UKPRN: 10006341, FileName: tt.fileName}).CheckFileName()
			if tt.wantErr && !errors.Is(err, ErrUKPRNMismatch) {
				t.Errorf("CheckFileName() = %v, want ErrUKPRNMismatch", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckFileName() = %v, want nil", err)
			}
		})
	}
}

func TestPopulate(t *testing.T) {
	prepared := time.Date(2017, time.August, 28, 10, 10, 10, 0, time.UTC)
	msg := &model.Message{
		Header:   model.Header{UKPRN: 10006341, FilePreparationDate: prepared},
		Learners: []*model.Learner{{LearnRefNumber: "L1"}},
	}

	c, err := Populate(msg, "ILR-10006341-1718-20170828-101010-01.xml")
	if err != nil {
		t.Fatalf("Populate() failed: %v", err)
	}
	if c.UKPRN() != 10006341 {
		t.Errorf("UKPRN() = %d, want 10006341", c.UKPRN())
	}
	if !c.FilePreparationDate().Equal(prepared) {
		t.Errorf("FilePreparationDate() = %v, want %v", c.FilePreparationDate(), prepared)
	}
	if c.Message() != msg {
		t.Error("Message() should return the populated message")
	}
	if got := FromData(c.Data()); got.UKPRN() != c.UKPRN() || got.FileName() != c.FileName() {
		t.Errorf("FromData(Data()) = %+v, want %+v", got.Data(), c.Data())
	}
}

func TestPopulateNilMessage(t *testing.T) {
	if _, err := Populate(nil, "x"); err != ErrNoMessage {
		t.Errorf("Populate(nil) error = %v, want %v", err, ErrNoMessage)
	}
}

func intPtr(i int) *int { return &i }
