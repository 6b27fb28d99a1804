package countstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "check-fail", "post/1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "check-fail", "post/1"))
	assert.NoError(cs.Increment(ctx, "check-fail", "post/1"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "check-fail", "post/1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	assert.NoError(cs.Reset(ctx, "check-fail", "post/1"))
	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "check-fail", "post/1", period)
		assert.NoError(err)
		assert.Equal(0, c)
	}
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = cs.Increment(ctx, "spam-found", "batch")
			}
		}()
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, "spam-found", "batch", PeriodTotal)
	assert.NoError(err)
	assert.Equal(400, c)
}
