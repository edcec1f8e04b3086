package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Transaction runs fn against a repo bound to a single transaction.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx})
	})
}

// NextValue increments the named counter and returns the new value.
// Inside a transaction the counter row stays locked until commit.
func (r *GormRepo) NextValue(ctx context.Context, name string) (int64, error) {
	db := r.DB.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("counters.value + 1")}),
	}).Create(&models.Counter{Name: name, Value: 1}).Error
	if err != nil {
		return 0, err
	}

	var c models.Counter
	if err := db.Where("name = ?", name).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

// paginate counts q and loads one page of it.
func paginate[T any](q *gorm.DB, order string, offset, limit int) (int64, []T, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var rows []T
	if err := q.Session(&gorm.Session{}).Order(order).Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return 0, nil, err
	}
	return total, rows, nil
}
