package types

// Config represents the application configuration that can be loaded from a file.
// Timeout is a Go duration string ("30s", "1m").
type Config struct {
	Profiles   []string `json:"profiles" yaml:"profiles" toml:"profiles"`
	Regions    []string `json:"regions" yaml:"regions" toml:"regions"`
	All        bool     `json:"all" yaml:"all" toml:"all"`
	Merge      bool     `json:"merge" yaml:"merge" toml:"merge"`
	ReportName string   `json:"report_name" yaml:"report_name" toml:"report_name"`
	ReportType []string `json:"report_type" yaml:"report_type" toml:"report_type"`
	Dir        string   `json:"dir" yaml:"dir" toml:"dir"`
	TimeRange  string   `json:"time_range" yaml:"time_range" toml:"time_range"`
	Tag        []string `json:"tag" yaml:"tag" toml:"tag"`
	Months     int      `json:"months" yaml:"months" toml:"months"`
	S3Bucket   string   `json:"s3_bucket" yaml:"s3_bucket" toml:"s3_bucket"`
	S3Prefix   string   `json:"s3_prefix" yaml:"s3_prefix" toml:"s3_prefix"`
	Workers    int      `json:"workers" yaml:"workers" toml:"workers"`
	Timeout    string   `json:"timeout" yaml:"timeout" toml:"timeout"`
	LogLevel   string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat  string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile    string   `json:"log_file" yaml:"log_file" toml:"log_file"`
}
