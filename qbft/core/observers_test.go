package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opalchain/qbft/qbft/types"
)

type namedObserver struct {
	name string
	log  *[]string
}

func (o *namedObserver) BlockMined(*types.Block) {
	*o.log = append(*o.log, o.name)
}

func TestMinedObserversNotifyOrder(t *testing.T) {
	t.Parallel()

	var log []string
	observers := NewMinedObservers()
	observers.Subscribe(&namedObserver{name: "a", log: &log})
	observers.Subscribe(&namedObserver{name: "b", log: &log})
	observers.Subscribe(&namedObserver{name: "c", log: &log})

	observers.Notify(newTestBlock(1, 0))
	require.Equal(t, []string{"a", "b", "c"}, log)
}

func TestMinedObserversUnsubscribe(t *testing.T) {
	t.Parallel()

	var log []string
	observers := NewMinedObservers()
	a := observers.Subscribe(&namedObserver{name: "a", log: &log})
	observers.Subscribe(&namedObserver{name: "b", log: &log})

	observers.Unsubscribe(a)
	observers.Notify(newTestBlock(1, 0))
	require.Equal(t, []string{"b"}, log)
	require.Len(t, observers.order, 1, "unsubscribed ids must not accumulate")

	// Resubscribing after churn keeps registration order.
	observers.Subscribe(&namedObserver{name: "c", log: &log})
	log = nil
	observers.Notify(newTestBlock(1, 0))
	require.Equal(t, []string{"b", "c"}, log)
}
