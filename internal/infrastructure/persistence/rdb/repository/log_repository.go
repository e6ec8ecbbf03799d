package repository

import (
	"context"
	"fmt"

	"txscope/internal/domain/member"
	"txscope/internal/infrastructure/persistence/rdb/model"
	"txscope/internal/ports"
)

type LogRepository struct{}

var _ ports.LogRepository = (*LogRepository)(nil)

func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

// Save writes the entry and then validates it, so a rejected entry has
// already touched the transaction when the error is returned.
func (r *LogRepository) Save(ctx context.Context, entry member.Log) error {
	db, err := dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Log{Message: entry.Message}
	if err := db.Create(&row).Error; err != nil {
		return translate("insert log", err, nil)
	}
	return member.ValidateLog(entry)
}

func (r *LogRepository) FindByMessage(ctx context.Context, message string) (member.Log, error) {
	db, err := dbFromContext(ctx)
	if err != nil {
		return member.Log{}, err
	}

	var row model.Log
	if err := db.Where("message = ?", message).Order("id asc").Take(&row).Error; err != nil {
		return member.Log{}, translate(fmt.Sprintf("query log %q", message), err, member.ErrLogNotFound)
	}
	return member.Log{ID: row.ID, Message: row.Message}, nil
}
