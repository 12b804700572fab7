package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	p := New(2)
	p.Record(OpDetect, 10*time.Millisecond)
	p.Record(OpDetect, 30*time.Millisecond)
	p.Record(OpDetect, 20*time.Millisecond)
	p.Record(OpCheckImage, 5*time.Millisecond)

	snap := p.Snapshot()
	require.Len(t, snap.Operations, 2)

	image, detect := snap.Operations[0], snap.Operations[1]
	assert.Equal(t, OperationStats{Name: OpCheckImage, Count: 1, MeanMS: 5, MinMS: 5, MaxMS: 5}, image)
	// The mean only covers the last two samples.
	assert.Equal(t, OperationStats{Name: OpDetect, Count: 3, MeanMS: 25, MinMS: 10, MaxMS: 30}, detect)
}

func TestStartOperation(t *testing.T) {
	p := New(0)
	done := p.StartOperation(OpCheckVideo)
	time.Sleep(2 * time.Millisecond)
	done()

	snap := p.Snapshot()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, int64(1), snap.Operations[0].Count)
	assert.GreaterOrEqual(t, snap.Operations[0].MinMS, 2.0)
}

func TestNilProfiler(t *testing.T) {
	var p *Profiler
	p.StartOperation(OpDetect)()
	p.Record(OpDetect, time.Second)
	assert.Empty(t, p.Snapshot().Operations)
}

func TestConcurrentRecord(t *testing.T) {
	p := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Record(OpDetect, time.Millisecond)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), p.Snapshot().Operations[0].Count)
}
