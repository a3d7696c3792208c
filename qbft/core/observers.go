package core

import (
	"slices"
	"sync"

	"github.com/opalchain/qbft/qbft/types"
)

// MinedBlockObserver is notified exactly once per successfully imported
// block, synchronously, in subscription order.
type MinedBlockObserver interface {
	BlockMined(block *types.Block)
}

// MinedObservers is an ordered registry of mined-block observers. Observers
// are expected to subscribe before round execution begins.
type MinedObservers struct {
	mu        sync.Mutex
	nextID    uint64
	order     []uint64
	observers map[uint64]MinedBlockObserver
}

func NewMinedObservers() *MinedObservers {
	return &MinedObservers{
		observers: make(map[uint64]MinedBlockObserver),
	}
}

// Subscribe registers an observer and returns its subscription id.
func (m *MinedObservers) Subscribe(observer MinedBlockObserver) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.order = append(m.order, id)
	m.observers[id] = observer
	return id
}

func (m *MinedObservers) Unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, id)
	m.order = slices.DeleteFunc(m.order, func(v uint64) bool { return v == id })
}

// Notify invokes the registered observers in subscription order.
func (m *MinedObservers) Notify(block *types.Block) {
	m.mu.Lock()
	observers := make([]MinedBlockObserver, 0, len(m.observers))
	for _, id := range m.order {
		if obs, ok := m.observers[id]; ok {
			observers = append(observers, obs)
		}
	}
	m.mu.Unlock()

	for _, obs := range observers {
		obs.BlockMined(block)
	}
}
