package protracker

import "testing"

func BenchmarkDecodeFrames(b *testing.B) {
	p := newTestPlayer(b, []string{
		"428 01 A0F",
		"384 02 400",
		"320 01 704",
		"428 02 ...",
	}, 2)

	out := make([]int16, 1024*2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.DecodeFrames(1024, out)
	}
}
