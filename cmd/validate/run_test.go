package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ilrvalidation/config"
	"github.com/liamcoop/ilrvalidation/report"
)

const referenceYAML = `
learning_deliveries:
  - learn_aim_ref: "60133533"
    learn_aim_ref_type: "0001"
    effective_from: 2013-08-01
organisations:
  - ukprn: 10006341
    partner_ukprn: true
`

const submissionJSON = `{
  "Header": {"UKPRN": 10006341, "FilePreparationDate": "2017-10-01T00:00:00Z"},
  "Learner": [
    {
      "LearnRefNumber": "L1",
      "ULN": 9999999999,
      "LearningDelivery": [
        {
          "AimSeqNumber": 2,
          "AimType": 4,
          "LearnAimRef": "60133533",
          "FundModel": 35,
          "AddHours": 40,
          "CompStatus": 1,
          "LearnStartDate": "2015-07-01T00:00:00Z",
          "LearnPlanEndDate": "2016-06-30T00:00:00Z"
        }
      ]
    },
    {
      "LearnRefNumber": "L2",
      "ULN": 9999999999,
      "LearningDelivery": [
        {
          "AimSeqNumber": 1,
          "AimType": 4,
          "LearnAimRef": "60133533",
          "FundModel": 35,
          "CompStatus": 1,
          "LearnStartDate": "2017-09-01T00:00:00Z",
          "LearnPlanEndDate": "2018-06-30T00:00:00Z"
        }
      ]
    }
  ]
}`

func writeFixtures(t *testing.T) (submission, reference string) {
	t.Helper()
	dir := t.TempDir()
	submission = filepath.Join(dir, "ILR-10006341-1718-20171001-120000-01.json")
	reference = filepath.Join(dir, "reference.yaml")
	require.NoError(t, os.WriteFile(submission, []byte(submissionJSON), 0o600))
	require.NoError(t, os.WriteFile(reference, []byte(referenceYAML), 0o600))
	return submission, reference
}

func TestValidateFileWritesReport(t *testing.T) {
	submission, reference := writeFixtures(t)
	cfg := config.Default()
	cfg.Reference.FilePath = reference
	output := report.OutputPath(submission)

	errs, err := validateFile(context.Background(), cfg, submission, output)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "AddHours_01", errs[0].RuleName)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, []string{"E", "L1", "AddHours_01", "LearnStartDate=01/07/2015|FundModel=35|AddHours=40", "", "2"}, rows[1][:6])
}

func TestValidateFileErrors(t *testing.T) {
	submission, reference := writeFixtures(t)

	cfg := config.Default()
	_, err := validateFile(context.Background(), cfg, submission, submission+".out")
	assert.ErrorContains(t, err, "no reference data")

	cfg.Reference.FilePath = reference
	_, err = validateFile(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.json"), "out.csv")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	submission, reference := writeFixtures(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", submission, "--reference", reference})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		runFlags.reference = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "1 errors, 0 warnings")
	assert.FileExists(t, report.OutputPath(submission))
}

func TestRulesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"rules", "--catalog-version", "1819"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rulesFlags.catalogVersion = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "CATALOG 1819")
	assert.Contains(t, out.String(), "FundModel_09")
	assert.Contains(t, out.String(), "error")
}
