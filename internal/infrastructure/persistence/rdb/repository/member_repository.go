package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"txscope/internal/domain/member"
	"txscope/internal/infrastructure/persistence/rdb/model"
	"txscope/internal/infrastructure/persistence/rdb/resource"
	"txscope/internal/ports"
	"txscope/internal/txn"
)

type MemberRepository struct{}

var _ ports.MemberRepository = (*MemberRepository)(nil)

func NewMemberRepository() *MemberRepository {
	return &MemberRepository{}
}

// dbFromContext resolves the gorm session of the handle bound to ctx.
// Participants never open connections of their own.
func dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	handle, err := txn.CurrentHandle(ctx)
	if err != nil {
		return nil, err
	}

	h, ok := handle.(*resource.Handle)
	if !ok || h == nil {
		return nil, fmt.Errorf("%w in context: %T", resource.ErrUnsupportedHandle, handle)
	}
	return h.DB(ctx)
}

func (r *MemberRepository) Save(ctx context.Context, m member.Member) (member.Member, error) {
	db, err := dbFromContext(ctx)
	if err != nil {
		return member.Member{}, err
	}

	row := model.Member{MemberID: m.MemberID, Money: m.Money}
	if err := db.Create(&row).Error; err != nil {
		return member.Member{}, translate("insert member", err, nil)
	}
	return mapMember(row), nil
}

func (r *MemberRepository) FindByID(ctx context.Context, memberID string) (member.Member, error) {
	db, err := dbFromContext(ctx)
	if err != nil {
		return member.Member{}, err
	}

	var row model.Member
	if err := db.Where("member_id = ?", memberID).Take(&row).Error; err != nil {
		return member.Member{}, translate(fmt.Sprintf("query member %q", memberID), err, member.ErrMemberNotFound)
	}
	return mapMember(row), nil
}

func (r *MemberRepository) Update(ctx context.Context, memberID string, money int) error {
	db, err := dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Member{}).Where("member_id = ?", memberID).Update("money", money)
	if result.Error != nil {
		return translate("update member", result.Error, nil)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update member %q: %w", memberID, member.ErrMemberNotFound)
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, memberID string) error {
	db, err := dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("member_id = ?", memberID).Delete(&model.Member{}).Error; err != nil {
		return translate("delete member", err, nil)
	}
	return nil
}

func mapMember(row model.Member) member.Member {
	return member.Member{MemberID: row.MemberID, Money: row.Money}
}
