package models

// Stat is a named persistent counter. The only row in scope is the global
// view counter, keyed "views" and seeded to 0 at first startup. Its value is
// monotonically non-decreasing.
type Stat struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value int64  `gorm:"not null;default:0" json:"value"`
}

// ViewsKey is the fixed key of the global view counter row.
const ViewsKey = "views"

// TableName keeps the legacy table name.
func (Stat) TableName() string {
	return "stats"
}
