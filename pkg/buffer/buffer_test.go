package buffer

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	cerrors "github.com/c360/linewatch/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBufferBasicOperations(t *testing.T) {
	buf, err := NewCircularBuffer[string](3)
	require.NoError(t, err, "Failed to create buffer")
	defer buf.Close()

	require.Equal(t, 0, buf.Size())
	require.Equal(t, 3, buf.Capacity())
	require.True(t, buf.IsEmpty())
	require.False(t, buf.IsFull())

	require.NoError(t, buf.Write("first"))
	require.Equal(t, 1, buf.Size())
	require.NoError(t, buf.Write("second"))
	require.NoError(t, buf.Write("third"))
	require.True(t, buf.IsFull())

	// Peek does not consume
	value, ok := buf.Peek()
	require.True(t, ok)
	assert.Equal(t, "first", value)
	assert.Equal(t, 3, buf.Size())

	// Read consumes in FIFO order
	value, ok = buf.Read()
	require.True(t, ok)
	assert.Equal(t, "first", value)
	assert.Equal(t, 2, buf.Size())

	batch := buf.ReadBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, []string{"second", "third"}, batch)
	assert.True(t, buf.IsEmpty())
}

func TestCircularBufferOverflowPolicies(t *testing.T) {
	testCases := []struct {
		name     string
		policy   OverflowPolicy
		expected []int
	}{
		{
			name:     "DropOldest",
			policy:   DropOldest,
			expected: []int{3, 4, 5}, // 1,2 dropped
		},
		{
			name:     "DropNewest",
			policy:   DropNewest,
			expected: []int{1, 2, 3}, // 4,5 not added
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := NewCircularBuffer[int](3, WithOverflowPolicy[int](tc.policy))
			require.NoError(t, err)
			defer buf.Close()

			for i := 1; i <= 5; i++ {
				_ = buf.Write(i)
			}

			var result []int
			for !buf.IsEmpty() {
				value, ok := buf.Read()
				if ok {
					result = append(result, value)
				}
			}

			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestCircularBufferStatistics(t *testing.T) {
	buf, err := NewCircularBuffer[int](5)
	require.NoError(t, err)
	defer buf.Close()

	stats := buf.Stats()
	require.NotNil(t, stats, "stats are always enabled")

	_ = buf.Write(1)
	_ = buf.Write(2)
	assert.Equal(t, int64(2), stats.Writes())

	buf.Read()
	assert.Equal(t, int64(1), stats.Reads())

	overflowBuf, err := NewCircularBuffer[int](2, WithOverflowPolicy[int](DropOldest))
	require.NoError(t, err)
	defer overflowBuf.Close()

	_ = overflowBuf.Write(1)
	_ = overflowBuf.Write(2)
	_ = overflowBuf.Write(3)

	assert.Equal(t, int64(1), overflowBuf.Stats().Overflows())
	assert.Equal(t, int64(1), overflowBuf.Stats().Drops())
}

func TestCircularBufferThreadSafety(t *testing.T) {
	buf, err := NewCircularBuffer[int](1000)
	require.NoError(t, err)
	defer buf.Close()

	var wg sync.WaitGroup
	numWorkers := 10
	itemsPerWorker := 100

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < itemsPerWorker; i++ {
				_ = buf.Write(worker*itemsPerWorker + i)
			}
		}(w)
	}

	wg.Add(numWorkers)
	readCount := 0
	var readMutex sync.Mutex
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < itemsPerWorker; i++ {
				if _, ok := buf.Read(); ok {
					readMutex.Lock()
					readCount++
					readMutex.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	// Every written item was either read or is still buffered
	finalSize := buf.Size()
	totalWritten := numWorkers * itemsPerWorker

	readMutex.Lock()
	totalRead := readCount
	readMutex.Unlock()

	assert.Equal(t, totalWritten, totalRead+finalSize,
		"written=%d read=%d remaining=%d", totalWritten, totalRead, finalSize)
}

func TestCircularBufferClear(t *testing.T) {
	buf, err := NewCircularBuffer[string](5)
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write("a")
	_ = buf.Write("b")
	_ = buf.Write("c")
	require.Equal(t, 3, buf.Size())

	buf.Clear()

	assert.Equal(t, 0, buf.Size())
	assert.True(t, buf.IsEmpty())
}

func TestCircularBufferDropCallback(t *testing.T) {
	var droppedItems []int
	var mu sync.Mutex

	buf, err := NewCircularBuffer[int](2,
		WithOverflowPolicy[int](DropOldest),
		WithDropCallback(func(item int) {
			mu.Lock()
			droppedItems = append(droppedItems, item)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write(1)
	_ = buf.Write(2)
	_ = buf.Write(3) // drops 1
	_ = buf.Write(4) // drops 2

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, droppedItems)
}

func TestCircularBufferEdgeCases(t *testing.T) {
	buf, err := NewCircularBuffer[int](1)
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write(1)
	require.True(t, buf.IsFull(), "capacity-1 buffer full after one write")

	value, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 1, value)

	_, ok = buf.Read()
	assert.False(t, ok, "read from empty buffer")

	_, ok = buf.Peek()
	assert.False(t, ok, "peek empty buffer")

	batch := buf.ReadBatch(5)
	assert.Empty(t, batch, "batch read from empty buffer")
}

func TestBlockingPolicyWithTimeout(t *testing.T) {
	buf, err := NewCircularBuffer[int](2, WithOverflowPolicy[int](Block))
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Write(1))
	require.NoError(t, buf.Write(2))

	start := time.Now()
	err = buf.(*circularBuffer[int]).WriteWithTimeout(3, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err, "expected timeout when buffer is full")
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestBlockingPolicyWithContextCancellation(t *testing.T) {
	buf, err := NewCircularBuffer[int](2, WithOverflowPolicy[int](Block))
	require.NoError(t, err, "Failed to create blocking buffer")
	defer buf.Close()

	_ = buf.Write(1)
	_ = buf.Write(2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err = buf.(*circularBuffer[int]).WriteWithContext(ctx, 3)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestBlockingPolicyUnblocksOnRead(t *testing.T) {
	buf, err := NewCircularBuffer[int](2, WithOverflowPolicy[int](Block))
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write(1)
	_ = buf.Write(2)

	var wg sync.WaitGroup
	var writeErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		writeErr = buf.Write(3)
	}()

	// Give the write time to block, then make room
	time.Sleep(50 * time.Millisecond)
	value, ok := buf.Read()
	require.True(t, ok)
	assert.Equal(t, 1, value)

	wg.Wait()

	require.NoError(t, writeErr, "write should succeed after read frees space")
	assert.Equal(t, 2, buf.Size())
}

func TestClosedBufferRejectsWrites(t *testing.T) {
	buf, err := NewCircularBuffer[int](2)
	require.NoError(t, err)

	_ = buf.Close()

	err = buf.Write(1)
	require.Error(t, err, "write to closed buffer")

	var classifiedErr *cerrors.ClassifiedError
	require.True(t, errors.As(err, &classifiedErr), "expected classified error")
	assert.Equal(t, cerrors.ErrorInvalid, classifiedErr.Class)
	assert.Equal(t, "Buffer", classifiedErr.Component)
	assert.Equal(t, "Write", classifiedErr.Operation)
	assert.True(t, errors.Is(err, cerrors.ErrShuttingDown))
}

func TestWriteWithContextClosedBuffer(t *testing.T) {
	buf, err := NewCircularBuffer[int](2, WithOverflowPolicy[int](Block))
	require.NoError(t, err)

	_ = buf.Close()

	err = buf.(*circularBuffer[int]).WriteWithContext(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cerrors.ErrShuttingDown))
}

func TestConcurrentContextCancellations(t *testing.T) {
	buf, err := NewCircularBuffer[int](1, WithOverflowPolicy[int](Block))
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write(1)

	var wg sync.WaitGroup
	var errs []error
	var errorsMutex sync.Mutex

	numGoroutines := 10
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			err := buf.(*circularBuffer[int]).WriteWithContext(ctx, id)

			errorsMutex.Lock()
			errs = append(errs, err)
			errorsMutex.Unlock()
		}(i)
	}

	wg.Wait()

	errorsMutex.Lock()
	defer errorsMutex.Unlock()

	require.Len(t, errs, numGoroutines)
	for i, err := range errs {
		assert.Equal(t, context.DeadlineExceeded, err, "goroutine %d", i)
	}
}

func TestBlockingPolicyNoGoroutineLeaks(t *testing.T) {
	initialGoroutines := runtime.NumGoroutine()

	buf, err := NewCircularBuffer[int](1, WithOverflowPolicy[int](Block))
	require.NoError(t, err)
	defer buf.Close()

	_ = buf.Write(1)

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_ = buf.(*circularBuffer[int]).WriteWithContext(ctx, i)
		cancel()
	}

	time.Sleep(100 * time.Millisecond)

	finalGoroutines := runtime.NumGoroutine()
	assert.LessOrEqual(t, finalGoroutines, initialGoroutines+2,
		"potential goroutine leak: started with %d, ended with %d", initialGoroutines, finalGoroutines)
}
