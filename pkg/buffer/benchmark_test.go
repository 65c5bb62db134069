package buffer

import (
	"fmt"
	"math/rand"
	"testing"
)

// BenchmarkBufferWrite benchmarks Write across capacities and overflow policies.
func BenchmarkBufferWrite(b *testing.B) {
	configs := []struct {
		name     string
		capacity int
		policy   OverflowPolicy
	}{
		{"Cap100_DropOldest", 100, DropOldest},
		{"Cap100_DropNewest", 100, DropNewest},
		{"Cap1024_DropOldest", 1024, DropOldest},
	}

	for _, cfg := range configs {
		b.Run(cfg.name, func(b *testing.B) {
			buf, err := NewCircularBuffer[int](cfg.capacity, WithOverflowPolicy[int](cfg.policy))
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					_ = buf.Write(i)
					i++
				}
			})
		})
	}
}

// BenchmarkBufferRead benchmarks Read on a pre-populated buffer.
func BenchmarkBufferRead(b *testing.B) {
	buf, err := NewCircularBuffer[int](1024)
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Close()

	for i := 0; i < 1024; i++ {
		_ = buf.Write(i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf.Read()
		}
	})
}

// BenchmarkBufferReadBatch benchmarks the batch sizes the pipeline workers use.
func BenchmarkBufferReadBatch(b *testing.B) {
	batchSizes := []int{1, 32, 256}

	for _, batchSize := range batchSizes {
		b.Run(fmt.Sprintf("BatchSize_%d", batchSize), func(b *testing.B) {
			buf, err := NewCircularBuffer[int](1024)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for j := 0; j < 1024; j++ {
					_ = buf.Write(j)
				}
				for !buf.IsEmpty() {
					buf.ReadBatch(batchSize)
				}
			}
		})
	}
}

// BenchmarkBufferOverflow measures the cost of writes that evict under pressure.
func BenchmarkBufferOverflow(b *testing.B) {
	policies := []struct {
		name   string
		policy OverflowPolicy
	}{
		{"DropOldest", DropOldest},
		{"DropNewest", DropNewest},
	}

	for _, pol := range policies {
		b.Run(pol.name, func(b *testing.B) {
			buf, err := NewCircularBuffer[int](100, WithOverflowPolicy[int](pol.policy))
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = buf.Write(i)
			}
		})
	}
}

// BenchmarkBufferDropCallback measures the overhead a drop callback adds to eviction.
func BenchmarkBufferDropCallback(b *testing.B) {
	configs := []struct {
		name         string
		withCallback bool
	}{
		{"WithoutCallback", false},
		{"WithCallback", true},
	}

	for _, cfg := range configs {
		b.Run(cfg.name, func(b *testing.B) {
			opts := []Option[int]{WithOverflowPolicy[int](DropOldest)}
			if cfg.withCallback {
				opts = append(opts, WithDropCallback(func(item int) {
					_ = item
				}))
			}

			buf, err := NewCircularBuffer[int](100, opts...)
			if err != nil {
				b.Fatal(err)
			}
			defer buf.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = buf.Write(i)
			}
		})
	}
}

// BenchmarkBufferProducerConsumer simulates the decoder/evaluator handoff: one side
// writing readings, the other draining them, with occasional size checks.
func BenchmarkBufferProducerConsumer(b *testing.B) {
	buf, err := NewCircularBuffer[int](1024, WithOverflowPolicy[int](DropOldest))
	if err != nil {
		b.Fatal(err)
	}
	defer buf.Close()

	for i := 0; i < 512; i++ {
		_ = buf.Write(i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if rand.Intn(2) == 0 {
				_ = buf.Write(rand.Int())
			} else {
				buf.Read()
			}
			if rand.Intn(100) == 0 {
				buf.Size()
			}
		}
	})
}
