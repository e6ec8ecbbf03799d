package model

type Log struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Message string `gorm:"column:message;type:varchar(255);not null;index"`
}

func (Log) TableName() string {
	return "log"
}

// All lists every table the participants write to, in migration order.
func All() []any {
	return []any{&Member{}, &Log{}}
}
