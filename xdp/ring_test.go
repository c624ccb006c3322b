package xdp_test

import (
	"sync"
	"testing"

	"github.com/usnistgov/xdpfn/xdp"
)

func TestRing(t *testing.T) {
	assert, require := makeAR(t)

	r := xdp.NewRing[int](5)
	assert.Equal(8, r.Capacity())
	assert.Equal(0, r.Count())
	_, ok := r.Peek()
	assert.False(ok)

	for i := 0; i < 8; i++ {
		assert.True(r.Produce(i))
	}
	assert.False(r.Produce(8))
	assert.Equal(0, r.Free())

	item, ok := r.Peek()
	require.True(ok)
	assert.Equal(0, *item)
	assert.Equal(3, r.Consume(3))
	assert.Equal(5, r.Count())
	assert.EqualValues(3, r.ConsumerIndex())
	assert.EqualValues(8, r.ProducerIndex())
	assert.Equal(5, *r.At(r.ConsumerIndex() + 2))

	assert.Equal(5, r.Consume(100))
	assert.Equal(0, r.Count())

	assert.Panics(func() { xdp.NewRing[int](0) })
}

func TestRingConcurrent(t *testing.T) {
	assert, _ := makeAR(t)

	const n = 10000
	r := xdp.NewRing[int](64)
	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for len(got) < n {
			if item, ok := r.Peek(); ok {
				got = append(got, *item)
				r.Consume(1)
			}
		}
	}()
	for i := 0; i < n; {
		if r.Produce(i) {
			i++
		}
	}
	wg.Wait()

	for i, v := range got {
		if !assert.Equal(i, v) {
			break
		}
	}
}
