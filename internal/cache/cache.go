package cache

import (
	"errors"
	"sort"
	"sync"

	"github.com/OCAP2/drivetrain/internal/drivetrain"
	"github.com/OCAP2/drivetrain/pkg/core"
)

var (
	// ErrUnknownCar is returned for commands addressed to a car that was never created.
	ErrUnknownCar = errors.New("unknown car")
	// ErrCarExists is returned when a car id is created twice.
	ErrCarExists = errors.New("car already exists")
)

// Car is a live controller and the recording session it belongs to.
type Car struct {
	Controller *drivetrain.Controller
	Session    core.Session
}

// CarCache holds the live cars by id. Every input command looks a car up
// here, so reads take a shared lock.
type CarCache struct {
	m    sync.RWMutex
	Cars map[string]*Car
}

func NewCarCache() *CarCache {
	return &CarCache{
		Cars: make(map[string]*Car),
	}
}

func (c *CarCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Cars = make(map[string]*Car)
}

func (c *CarCache) Lock() {
	c.m.Lock()
}

func (c *CarCache) Unlock() {
	c.m.Unlock()
}

// Add stores car under id unless the id is taken.
func (c *CarCache) Add(id string, car *Car) error {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.Cars[id]; ok {
		return ErrCarExists
	}
	c.Cars[id] = car
	return nil
}

func (c *CarCache) Get(id string) (*Car, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if car, ok := c.Cars[id]; ok {
		return car, nil
	}
	return nil, ErrUnknownCar
}

// Remove deletes and returns the car stored under id.
func (c *CarCache) Remove(id string) (*Car, error) {
	c.m.Lock()
	defer c.m.Unlock()
	car, ok := c.Cars[id]
	if !ok {
		return nil, ErrUnknownCar
	}
	delete(c.Cars, id)
	return car, nil
}

func (c *CarCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.Cars)
}

// IDs returns the live car ids in sorted order.
func (c *CarCache) IDs() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	ids := make([]string, 0, len(c.Cars))
	for id := range c.Cars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each calls fn for every car in id order. fn must not modify the cache.
func (c *CarCache) Each(fn func(id string, car *Car)) {
	for _, id := range c.IDs() {
		car, err := c.Get(id)
		if err != nil {
			continue
		}
		fn(id, car)
	}
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
