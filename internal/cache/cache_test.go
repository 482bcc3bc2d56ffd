package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/drivetrain/internal/drivetrain"
	"github.com/OCAP2/drivetrain/internal/geartable"
	"github.com/OCAP2/drivetrain/pkg/core"
)

func newTestCar(t *testing.T, id string) *Car {
	t.Helper()
	table := geartable.MustNew(geartable.Config{Scale: geartable.Standard})
	ctrl, err := drivetrain.New(drivetrain.DefaultConfig(), table, drivetrain.WithCarID(id))
	require.NoError(t, err)
	return &Car{Controller: ctrl, Session: core.Session{ID: "session-" + id, CarID: id}}
}

func TestCarCache_NewCarCache(t *testing.T) {
	cache := NewCarCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Cars)
	assert.Equal(t, 0, cache.Len())
}

func TestCarCache_AddAndGet(t *testing.T) {
	cache := NewCarCache()

	require.NoError(t, cache.Add("car-1", newTestCar(t, "car-1")))

	got, err := cache.Get("car-1")
	require.NoError(t, err)
	assert.Equal(t, "car-1", got.Controller.CarID())
	assert.Equal(t, "session-car-1", got.Session.ID)
}

func TestCarCache_AddDuplicate(t *testing.T) {
	cache := NewCarCache()

	require.NoError(t, cache.Add("car-1", newTestCar(t, "car-1")))
	err := cache.Add("car-1", newTestCar(t, "car-1"))
	assert.ErrorIs(t, err, ErrCarExists)
}

func TestCarCache_GetUnknown(t *testing.T) {
	cache := NewCarCache()

	_, err := cache.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownCar)
}

func TestCarCache_Remove(t *testing.T) {
	cache := NewCarCache()
	require.NoError(t, cache.Add("car-1", newTestCar(t, "car-1")))

	car, err := cache.Remove("car-1")
	require.NoError(t, err)
	assert.Equal(t, "car-1", car.Session.CarID)

	_, err = cache.Remove("car-1")
	assert.ErrorIs(t, err, ErrUnknownCar)
	assert.Equal(t, 0, cache.Len())
}

func TestCarCache_IDsAndEach(t *testing.T) {
	cache := NewCarCache()
	for _, id := range []string{"b", "c", "a"} {
		require.NoError(t, cache.Add(id, newTestCar(t, id)))
	}

	assert.Equal(t, []string{"a", "b", "c"}, cache.IDs())

	var visited []string
	cache.Each(func(id string, car *Car) {
		visited = append(visited, id+"="+car.Controller.CarID())
	})
	assert.Equal(t, []string{"a=a", "b=b", "c=c"}, visited)
}

func TestCarCache_Reset(t *testing.T) {
	cache := NewCarCache()
	require.NoError(t, cache.Add("car-1", newTestCar(t, "car-1")))

	cache.Reset()
	assert.Equal(t, 0, cache.Len())

	// Verify we can still add data after reset
	require.NoError(t, cache.Add("car-1", newTestCar(t, "car-1")))
	_, err := cache.Get("car-1")
	assert.NoError(t, err)
}

func TestCarCache_LockUnlock(t *testing.T) {
	cache := NewCarCache()

	cache.Lock()
	cache.Cars["direct"] = newTestCar(t, "direct")
	cache.Unlock()

	_, err := cache.Get("direct")
	require.NoError(t, err, "expected to find car added while holding lock")
}

func TestCarCache_Concurrent(t *testing.T) {
	cache := NewCarCache()
	cars := make([]*Car, 100)
	for i := range cars {
		cars[i] = newTestCar(t, fmt.Sprintf("car-%d", i))
	}

	var wg sync.WaitGroup
	for i := range cars {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = cache.Add(fmt.Sprintf("car-%d", i), cars[i])
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = cache.Get(fmt.Sprintf("car-%d", i))
			_ = cache.IDs()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(100)
	assert.Equal(t, int(100), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	assert.Equal(t, int(1), c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	// Concurrent increments
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}
