package types

type ExportResult struct {
	ExportId      string
	FileName      string
	Location      string
	TotalRecords  int
	ArchivedCount int
	Skipped       []string
	SizeBytes     int64
}
