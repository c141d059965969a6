package monitor

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/OCAP2/combatbot/internal/logging"
	"github.com/OCAP2/combatbot/internal/mission"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRoster []BotStatus

func (r fixedRoster) Statuses() []BotStatus {
	return r
}

func newService(t *testing.T, roster Roster) *Service {
	t.Helper()
	mc := mission.NewContext(weapon.Default())
	s := mission.DefaultSettings()
	s.GameType = mission.GameTeam
	s.MapTitle = "Arena"
	mc.Set(s)

	frame := &logging.FrameContext{}
	frame.Set(120, 6)

	return NewService(Dependencies{
		LogManager:     logging.NewSlogManager(),
		MissionContext: mc,
		Roster:         roster,
		Frame:          frame,
		OutputDir:      t.TempDir(),
		Interval:       10 * time.Millisecond,
	})
}

func TestService_GetStatus(t *testing.T) {
	roster := fixedRoster{{Name: "alpha", Entity: 1, Weapon: "Railgun", Aim: "enemy", Enemy: 2}}
	svc := newService(t, roster)

	st := svc.GetStatus()
	assert.Equal(t, mission.GameTeam.String(), st.GameType)
	assert.Equal(t, "Arena", st.Map)
	assert.Equal(t, int64(120), st.Frame)
	require.Len(t, st.Bots, 1)
	assert.Equal(t, "alpha", st.Bots[0].Name)
}

func TestService_GetStatusWithoutRoster(t *testing.T) {
	svc := newService(t, nil)
	assert.Empty(t, svc.GetStatus().Bots)
}

func TestService_StartWritesStatus(t *testing.T) {
	svc := newService(t, fixedRoster{{Name: "bravo", Entity: 3}})
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start(), "second start is a no-op")
	assert.True(t, svc.IsRunning())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(svc.Path())
		if err != nil || len(data) == 0 {
			return false
		}
		var st Status
		return json.Unmarshal(data, &st) == nil && len(st.Bots) == 1
	}, 2*time.Second, 10*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestService_StartFailsOnMissingDir(t *testing.T) {
	svc := newService(t, nil)
	svc.deps.OutputDir = "/nonexistent/combatbot/status"
	assert.Error(t, svc.Start())
	assert.False(t, svc.IsRunning())
}

// growingRoster reports one more kill every call.
type growingRoster struct {
	calls int
}

func (r *growingRoster) Statuses() []BotStatus {
	r.calls++
	return []BotStatus{{Name: "alpha", Fired: int64(r.calls)}}
}

func TestService_StopWritesFinalStatus(t *testing.T) {
	roster := &growingRoster{}
	svc := newService(t, roster)
	svc.deps.Interval = time.Hour
	require.NoError(t, svc.Start())
	svc.Stop()

	data, err := os.ReadFile(svc.Path())
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	require.Len(t, st.Bots, 1)
	assert.Equal(t, int64(1), st.Bots[0].Fired, "written once, on stop")
}
