package playground

import "strings"

// StatementFilename derives the download filename for an account statement
// from the requested format code.
func StatementFilename(format string) string {
	switch {
	case strings.HasPrefix(format, "CSV_"):
		return "statement.csv"
	case strings.HasPrefix(format, "XLS_"):
		return "statement.xls"
	case strings.HasPrefix(format, "ABO_"):
		return "statement.abo"
	case format == "PDF_A":
		return "statement.pdf"
	default:
		return "statement.dat"
	}
}
