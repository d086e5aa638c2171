// ilrvalidate validates an ILR submission file from the command line.
//
// Usage:
//
//	# Validate a submission against a reference data file
//	ilrvalidate run ILR-10006341-1718-20171001-120000-01.json --reference reference.yaml
//
//	# Validate against reference data and expression rules held in PostgreSQL
//	ILRV_DATABASE_URL=postgres://... ilrvalidate run submission.json
//
//	# List the rules of a catalog version
//	ilrvalidate rules --catalog-version 1718
//
// The report is written next to the input as <input>.vs.csv.
package main

func main() {
	Execute()
}
