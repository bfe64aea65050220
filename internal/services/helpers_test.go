package services_test

import (
	"context"
	"strconv"
	"time"

	"taskshare/internal/database"
	"taskshare/internal/models"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type dbSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB
}

func (s *dbSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = database.OpenTestDB(s.T())
}

func (s *dbSuite) createUser(name string) *models.User {
	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *dbSuite) createCategory(owner *models.User, name string) *models.Category {
	category := &models.Category{
		UserID: owner.ID,
		Name:   name,
		Color:  models.DefaultCategoryColor,
		Icon:   models.DefaultCategoryIcon,
	}
	s.Require().NoError(s.db.Create(category).Error)
	return category
}

func (s *dbSuite) count(model interface{}, query string, args ...interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (s *dbSuite) countTaskTags(taskID uint) int64 {
	var n int64
	s.Require().NoError(s.db.Table("task_tags").Where("task_id = ?", taskID).Count(&n).Error)
	return n
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
