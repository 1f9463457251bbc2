package remotecall

import "math"

func f32FromBits(bits uint32) float32 { return math.Float32frombits(bits) }
func f64FromBits(bits uint64) float64 { return math.Float64frombits(bits) }

func f32Bits(v float32) uint32 { return math.Float32bits(v) }
func f64Bits(v float64) uint64 { return math.Float64bits(v) }
