package storage

// ThreatModel maps the threats table. The layout is inherited from the
// original dashboard database so existing deployments keep their history.
type ThreatModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Timestamp     string `gorm:"index"`
	ThreatType    string
	SourceIP      string
	DestinationIP string
	Ports         string
	// Meta is detector evidence as JSON text; NULL for CSV-migrated rows.
	Meta *string
}

// TableName keeps the legacy table name.
func (ThreatModel) TableName() string { return "threats" }

// AlertModel maps the alerts table.
type AlertModel struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	Timestamp     string
	AlertType     string
	SourceIP      string
	DestinationIP string
	Ports         string
	Message       string
	// Geolocation is a JSON-encoded GeoInfo, NULL when lookup failed.
	Geolocation *string
}

// TableName keeps the legacy table name.
func (AlertModel) TableName() string { return "alerts" }

// StatModel maps the stats key/value table used for durable counters.
type StatModel struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string
}

// TableName keeps the legacy table name.
func (StatModel) TableName() string { return "stats" }
