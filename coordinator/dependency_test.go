package coordinator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func TestRouteCaseNoDependency(t *testing.T) {
	d := newDependencyMap()
	best := 0
	s, target := addr(1), addr(2)
	tid := d.route(s, &target, &best, 4, failMigrate(t))

	require.Equal(t, 0, tid)
	require.Equal(t, 0, d[s])
	require.Equal(t, 0, d[target])
	require.Equal(t, 1, best)
}

func TestRouteCaseSenderOnly(t *testing.T) {
	d := newDependencyMap()
	s, target := addr(1), addr(2)
	d[s] = 2
	best := 0

	tid := d.route(s, &target, &best, 4, failMigrate(t))

	require.Equal(t, 2, tid)
	require.Equal(t, 2, d[target])
	require.Equal(t, 0, best) // bestThread only advances when it was the chosen engine
}

func TestRouteCaseTargetOnly(t *testing.T) {
	d := newDependencyMap()
	s, target := addr(1), addr(2)
	d[target] = 3
	best := 0

	tid := d.route(s, &target, &best, 4, failMigrate(t))

	require.Equal(t, 3, tid)
	require.Equal(t, 3, d[s])
}

func TestRouteCaseSameEngineNoMigration(t *testing.T) {
	d := newDependencyMap()
	s, target := addr(1), addr(2)
	d[s] = 1
	d[target] = 1
	best := 0

	tid := d.route(s, &target, &best, 4, failMigrate(t))

	require.Equal(t, 1, tid)
}

func TestRouteCaseSplitMigratesSenderToTargetEngine(t *testing.T) {
	d := newDependencyMap()
	s, target := addr(1), addr(2)
	d[s] = 0
	d[target] = 1
	best := 0

	var migratedAddr common.Address
	var from, to int
	tid := d.route(s, &target, &best, 4, func(a common.Address, f, t2 int) {
		migratedAddr, from, to = a, f, t2
	})

	require.Equal(t, 1, tid)
	require.Equal(t, s, migratedAddr)
	require.Equal(t, 0, from)
	require.Equal(t, 1, to)
	require.Equal(t, 1, d[s])
}

func TestRouteNilTargetIsContractCreation(t *testing.T) {
	d := newDependencyMap()
	s := addr(1)
	best := 0

	tid := d.route(s, nil, &best, 4, failMigrate(t))

	require.Equal(t, 0, tid)
	require.Equal(t, 0, d[s])
	require.Len(t, d, 1)
}

func failMigrate(t *testing.T) func(common.Address, int, int) {
	return func(common.Address, int, int) {
		t.Helper()
		t.Fatal("migrate should not be called")
	}
}
