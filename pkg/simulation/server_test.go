package simulation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powersim/powersim/pkg/energy"
)

const testCapacity = 2500000

func newTestServer(id int) *Server {
	return newServer(id, testCapacity, energy.DefaultPowerModel(), energy.DefaultHeatModel())
}

func TestServerAddArrival(t *testing.T) {
	s := newTestServer(0)
	require.False(t, s.AddArrival(0, 0, 100))
	require.False(t, s.AddArrival(0, -1, 100))
	require.False(t, s.IsBusy())
	require.Equal(t, 0, s.QueueLength())

	require.True(t, s.AddArrival(1, 2, 100))
	require.True(t, s.IsBusy())
	require.Equal(t, 1, s.QueueLength())
}

func TestServerIdleHasNoDeparture(t *testing.T) {
	s := newTestServer(0)
	require.False(t, s.NextDeparture().Present())

	s.Advance(5)
	require.Equal(t, 0.0, s.EnergyConsumed())
	require.Equal(t, 0.0, s.MaxTemp())
	require.Equal(t, 0.0, s.AvgUtilization())
	require.Equal(t, 0.0, s.AvgResponseTime())
}

func TestServerAdvanceServesOnlyHead(t *testing.T) {
	s := newTestServer(0)
	s.TurnOn()
	require.True(t, s.AddArrival(0, 3, testCapacity/2))
	require.True(t, s.AddArrival(0, 4, testCapacity))

	s.Advance(1)
	d, err := s.NextDeparture().Get()
	require.NoError(t, err)
	require.InDelta(t, 2.0, d, 1e-12)
	require.InDelta(t, 0.5, s.Util(), 1e-12)
	require.InDelta(t, 60.0, s.MaxTemp(), 1e-12)
	require.InDelta(t, 150.0, s.EnergyConsumed(), 1e-12)
	// the queued job does not age
	require.Equal(t, 4.0, s.queue[1].ProcessingTime)
}

func TestServerDepartHead(t *testing.T) {
	s := newTestServer(3)
	s.TurnOn()
	require.True(t, s.AddArrival(1, 2, testCapacity/2))
	require.True(t, s.AddArrival(1.5, 1, testCapacity/4))

	s.Advance(2)
	s.DepartHead(3)
	require.Equal(t, 1, s.JobsProcessed())
	require.True(t, s.IsOn())
	require.True(t, s.IsBusy())

	s.Advance(1)
	s.DepartHead(4)
	require.Equal(t, 2, s.JobsProcessed())
	require.False(t, s.IsOn())
	require.False(t, s.IsBusy())
	require.Equal(t, 0.0, s.Util())
	require.False(t, s.NextDeparture().Present())

	require.InDelta(t, (0.5+0.25)/2, s.AvgUtilization(), 1e-12)
	require.InDelta(t, (2.0+2.5)/2, s.AvgResponseTime(), 1e-12)
	require.InDelta(t, 60.0, s.MaxTemp(), 1e-12)

	for _, j := range s.FinishedJobs() {
		require.True(t, j.Finished)
		require.GreaterOrEqual(t, j.EndTime, j.StartTime)
	}

	// departing from an empty queue only keeps it off
	s.DepartHead(5)
	require.Equal(t, 2, s.JobsProcessed())
	require.False(t, s.IsOn())
}

func TestJobResponseTime(t *testing.T) {
	j := newJob(2, 1, 10)
	require.True(t, math.IsInf(j.ResponseTime(), 1))
	j.finish(5)
	require.Equal(t, 3.0, j.ResponseTime())
}

func TestServerPool(t *testing.T) {
	pool := newServerPool(5, 2, testCapacity, energy.DefaultPowerModel(), energy.DefaultHeatModel())
	require.Len(t, pool, 5)
	for i, s := range pool {
		require.Equal(t, i, s.ID())
		require.Equal(t, i < 2, s.IsOn())
	}
}
