package services_test

import (
	"testing"
	"time"

	"taskshare/internal/models"
	"taskshare/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"
)

type CachedTaskServiceSuite struct {
	dbSuite
	mr      *miniredis.Miniredis
	tasks   *services.CachedTaskService
	sharing *services.SharingServiceImpl
	alice   *models.User
	bob     *models.User
}

func TestCachedTaskServiceSuite(t *testing.T) {
	suite.Run(t, new(CachedTaskServiceSuite))
}

func (s *CachedTaskServiceSuite) SetupTest() {
	s.dbSuite.SetupTest()
	c, mr := newTestCache(s.T())
	s.mr = mr
	s.tasks = services.NewCachedTaskService(services.NewTaskService(s.db).WithClock(clock), c, 5*time.Minute)
	s.sharing = services.NewSharingService(s.db)
	s.alice = s.createUser("alice")
	s.bob = s.createUser("bob")
}

func (s *CachedTaskServiceSuite) TestStatsAreCached() {
	_, err := s.tasks.CreateTask(s.ctx, s.alice.ID, services.TaskInput{Title: "one"})
	s.Require().NoError(err)

	stats, err := s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Total)
	s.True(s.mr.Exists("taskshare:stats:" + uintString(s.alice.ID)))

	// a write behind the service's back is not seen until invalidation
	s.Require().NoError(s.db.Create(&models.Task{Title: "direct", UserID: s.alice.ID, Priority: 2, Status: models.StatusActive}).Error)

	stats, err = s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Total)
}

func (s *CachedTaskServiceSuite) TestMutationsInvalidateStats() {
	task, err := s.tasks.CreateTask(s.ctx, s.alice.ID, services.TaskInput{Title: "one"})
	s.Require().NoError(err)

	stats, err := s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Active)

	_, err = s.tasks.ToggleTask(s.ctx, s.alice.ID, task.ID)
	s.Require().NoError(err)
	stats, err = s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Completed)

	_, err = s.tasks.QuickAdd(s.ctx, s.alice.ID, "two")
	s.Require().NoError(err)
	stats, err = s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), stats.Total)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, s.alice.ID, task.ID))
	stats, err = s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(services.TaskStats{Total: 1, Active: 1}, stats)
}

func (s *CachedTaskServiceSuite) TestGranteeEditInvalidatesOwnerStats() {
	task, err := s.tasks.CreateTask(s.ctx, s.alice.ID, services.TaskInput{Title: "shared"})
	s.Require().NoError(err)
	_, err = s.sharing.ShareTask(s.ctx, s.alice.ID, task.ID, s.bob.Email, models.PermissionEdit)
	s.Require().NoError(err)

	stats, err := s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), stats.Completed)

	_, err = s.tasks.ToggleTask(s.ctx, s.bob.ID, task.ID)
	s.Require().NoError(err)

	stats, err = s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Completed)
}

func (s *CachedTaskServiceSuite) TestCacheOutageFallsThrough() {
	_, err := s.tasks.CreateTask(s.ctx, s.alice.ID, services.TaskInput{Title: "one"})
	s.Require().NoError(err)

	s.mr.Close()

	stats, err := s.tasks.Stats(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.Total)

	_, err = s.tasks.QuickAdd(s.ctx, s.alice.ID, "still works")
	s.NoError(err)
}
