package entity

// LogGroupInfo representa um log group e sua configuração de retenção.
type LogGroupInfo struct {
	GroupName     string `json:"group_name"`
	Region        string `json:"region"`
	RetentionDays int    `json:"retention_days"` // 0 => Never expire
	StoredBytes   int64  `json:"stored_bytes"`
}

// NeverExpires reports whether the group keeps data forever.
func (l LogGroupInfo) NeverExpires() bool {
	return l.RetentionDays == 0
}
