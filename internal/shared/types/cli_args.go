package types

import "time"

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile string
	Profiles   []string
	Regions    []string
	All        bool
	Merge      bool
	ReportName string
	ReportType []string
	Dir        string
	// TimeRange vazio é o mês corrente; aceita "last-month", um número de dias ou "AAAA-MM-DD:AAAA-MM-DD".
	TimeRange string
	Tag       []string
	Months    int
	S3Bucket  string
	S3Prefix  string
	Workers   int
	Timeout   time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}
