package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshaikhIntervision/Brinkmann/internal/domain"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
	"github.com/sshaikhIntervision/Brinkmann/internal/scheduler"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context) (*domain.RunSummary, error) {
	return &domain.RunSummary{}, nil
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := scheduler.NewScheduler(nopRunner{}, "not a cron spec", logger.NewNoOp())

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestStartWithoutSpecIsIdle(t *testing.T) {
	s := scheduler.NewScheduler(nopRunner{}, "", logger.NewNoOp())

	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartStopWithValidSpec(t *testing.T) {
	s := scheduler.NewScheduler(nopRunner{}, "0 2 * * *", logger.NewNoOp())

	require.NoError(t, s.Start())
	s.Stop()
}
