// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"audiomidi/internal/config"
)

// testEngine builds an Engine with capture buffers but no PortAudio
// stream, so the callback path can be exercised directly.
func testEngine(hop int) *Engine {
	cfg := config.New()
	cfg.HopSize = hop

	blocks := make([][]float64, blockRingSize)
	for i := range blocks {
		blocks[i] = make([]float64, hop)
	}
	return &Engine{
		cfg:     cfg,
		samples: make(chan []float64, sampleChanCap),
		blocks:  blocks,
	}
}

func TestProcessInputConversion(t *testing.T) {
	e := testEngine(4)

	e.processInput([]int32{0, math.MaxInt32, math.MinInt32, 1 << 30})
	block := <-e.samples

	want := []float64{0, float64(math.MaxInt32) * normFactor, -1, 0.5}
	for i, w := range want {
		if math.Abs(block[i]-w) > 1e-9 {
			t.Errorf("block[%d] = %v, want %v", i, block[i], w)
		}
	}
	for _, s := range block {
		if s < -1 || s >= 1 {
			t.Errorf("sample %v outside [-1, 1)", s)
		}
	}
}

func TestProcessInputShortBufferZeroPads(t *testing.T) {
	e := testEngine(4)

	e.processInput([]int32{math.MaxInt32, math.MaxInt32})
	block := <-e.samples

	if block[0] == 0 || block[1] == 0 {
		t.Error("provided samples should be converted, not zeroed")
	}
	if block[2] != 0 || block[3] != 0 {
		t.Errorf("missing samples should be zero, got %v %v", block[2], block[3])
	}
}

func TestProcessInputDropsWhenConsumerBehind(t *testing.T) {
	e := testEngine(4)
	in := []int32{1, 2, 3, 4}

	// Fill the channel, then overflow it.
	for i := 0; i < sampleChanCap; i++ {
		e.processInput(in)
	}
	if e.Dropped() != 0 {
		t.Fatalf("dropped %d blocks before the channel was full", e.Dropped())
	}

	e.processInput(in)
	e.processInput(in)
	if e.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", e.Dropped())
	}
}

func TestProcessInputZeroAllocs(t *testing.T) {
	e := testEngine(512)
	in := make([]int32, 512)

	// Keep the channel drained so every block is published.
	go func() {
		for range e.samples {
		}
	}()

	allocs := testing.AllocsPerRun(100, func() {
		e.processInput(in)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in capture callback, got %.1f", allocs)
	}
}

func TestBlockRingOutlivesChannel(t *testing.T) {
	e := testEngine(2)

	// Publish a full channel, then drop several more blocks. The ring
	// must be deep enough that queued blocks are still intact.
	for i := 0; i < sampleChanCap; i++ {
		e.processInput([]int32{int32(i + 1), int32(i + 1)})
	}
	for i := 0; i < blockRingSize-sampleChanCap; i++ {
		e.processInput([]int32{99, 99})
	}

	for i := 0; i < sampleChanCap; i++ {
		block := <-e.samples
		want := float64(i+1) * normFactor
		if block[0] != want {
			t.Fatalf("queued block %d overwritten: got %v, want %v", i, block[0], want)
		}
	}
}
