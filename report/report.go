// Package report writes validation results in the submission report format
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/liamcoop/ilrvalidation/rules"
)

// OutputSuffix is appended to the input path to name the report file
const OutputSuffix = ".vs.csv"

// Header is the fixed header row of the report
var Header = []string{
	`Error\Warning`,
	"Learner Ref",
	"Rule Name",
	"Field Values",
	"Error Message",
	"Aim Sequence Number",
	"Aim Reference Number",
	"Software Supplier Aim ID",
	"Funding Model",
	"Subcontracted UKPRN",
	"Provider Specified Learner Monitoring A",
	"Provider Specified Learner Monitoring B",
	"Provider Specified Learning Delivery Monitoring A",
	"Provider Specified Learning Delivery Monitoring B",
	"Provider Specified Learning Delivery Monitoring C",
	"Provider Specified Learning Delivery Monitoring D",
	"OFFICIAL-SENSITIVE",
}

const (
	colSeverity = iota
	colLearnRef
	colRuleName
	colFieldValues
	colErrorMessage
	colAimSeqNumber
)

// OutputPath returns the report path for an input file
func OutputPath(inputPath string) string {
	return inputPath + OutputSuffix
}

// Row renders one validation error as a report row with one cell per header column.
// The error message and the reserved columns are left blank.
func Row(e rules.ValidationError) []string {
	row := make([]string, len(Header))
	row[colSeverity] = e.Severity.Tag()
	row[colLearnRef] = e.LearnRefNumber
	row[colRuleName] = e.RuleName
	row[colFieldValues] = rules.JoinParameters(e.Parameters)
	if e.AimSequenceNumber != nil {
		row[colAimSeqNumber] = strconv.Itoa(*e.AimSequenceNumber)
	}
	return row
}

// Write writes the header followed by one row per error, in the given order
func Write(w io.Writer, errs []rules.ValidationError) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for i, e := range errs {
		if err := cw.Write(Row(e)); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// WriteFile writes the report to path, replacing any existing file
func WriteFile(path string, errs []rules.ValidationError) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report %s: %w", path, cerr)
		}
	}()
	return Write(f, errs)
}
