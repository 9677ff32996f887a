package cache_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
	"github.com/DanielPopoola/ficmart-billing/internal/infrastructure/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type RedisCommandGuardTestSuite struct {
	suite.Suite
	container testcontainers.Container
	rdb       *redis.Client
	guard     *cache.RedisCommandGuard
	ctx       context.Context
}

func TestRedisCommandGuardTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCommandGuardTestSuite))
}

func (s *RedisCommandGuardTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(s.ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(s.ctx, "6379")
	s.Require().NoError(err)

	s.rdb = redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	s.Require().NoError(s.rdb.Ping(s.ctx).Err())
	s.guard = cache.NewRedisCommandGuard(s.rdb, slog.New(slog.DiscardHandler))
}

func (s *RedisCommandGuardTestSuite) TearDownSuite() {
	s.Require().NoError(s.rdb.Close())
	s.Require().NoError(s.container.Terminate(s.ctx))
}

func (s *RedisCommandGuardTestSuite) SetupTest() {
	s.Require().NoError(s.rdb.FlushAll(s.ctx).Err())
}

func (s *RedisCommandGuardTestSuite) TestSecondAcquireIsRejected() {
	release, err := s.guard.Acquire(s.ctx, "process:p1", time.Minute)
	s.Require().NoError(err)

	_, err = s.guard.Acquire(s.ctx, "process:p1", time.Minute)
	s.ErrorIs(err, application.ErrCommandInFlight)

	release()
	again, err := s.guard.Acquire(s.ctx, "process:p1", time.Minute)
	s.Require().NoError(err)
	again()
}

func (s *RedisCommandGuardTestSuite) TestKeysAreIndependent() {
	releaseA, err := s.guard.Acquire(s.ctx, "process:a", time.Minute)
	s.Require().NoError(err)
	defer releaseA()

	releaseB, err := s.guard.Acquire(s.ctx, "refund:a", time.Minute)
	s.Require().NoError(err)
	defer releaseB()
}

func (s *RedisCommandGuardTestSuite) TestStaleReleaseKeepsNewHoldersGuard() {
	stale, err := s.guard.Acquire(s.ctx, "refund:p2", 50*time.Millisecond)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		n, err := s.rdb.Exists(s.ctx, "billing:guard:refund:p2").Result()
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)

	current, err := s.guard.Acquire(s.ctx, "refund:p2", time.Minute)
	s.Require().NoError(err)
	defer current()

	stale()

	_, err = s.guard.Acquire(s.ctx, "refund:p2", time.Minute)
	require.ErrorIs(s.T(), err, application.ErrCommandInFlight)
}
