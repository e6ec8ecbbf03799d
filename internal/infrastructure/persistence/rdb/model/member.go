package model

type Member struct {
	MemberID string `gorm:"column:member_id;type:varchar(64);primaryKey"`
	Money    int    `gorm:"column:money;not null;default:0"`
}

func (Member) TableName() string {
	return "member"
}
