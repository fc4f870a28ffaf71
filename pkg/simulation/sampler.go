package simulation

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand"
	"time"
)

// Source is the uniform random stream a Sampler draws from. *rand.Rand
// satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Sampler produces the stochastic inputs of one repetition.
type Sampler interface {
	Interarrival() float64
	ServiceTime() float64
	JobMIPS() float64
	// Pick returns a uniformly random index in [0, n).
	Pick(n int) int
}

// SamplerFactory returns the sampler for repetition rep. It is called once
// per repetition, possibly from several goroutines.
type SamplerFactory func(rep int) Sampler

// SamplerParams are the distribution parameters of RandomSampler.
type SamplerParams struct {
	ArrivalRate float64
	ServiceRate float64
	NumServers  int
	MaxMIPS     float64
	Wiggle      float64
}

// RandomSampler draws exponential interarrival and service times and
// uniform job sizes around the utilization setpoint.
type RandomSampler struct {
	src Source
	par SamplerParams
}

func NewRandomSampler(src Source, par SamplerParams) *RandomSampler {
	return &RandomSampler{src: src, par: par}
}

func (s *RandomSampler) Interarrival() float64 {
	return s.exp(s.par.ArrivalRate)
}

func (s *RandomSampler) ServiceTime() float64 {
	return s.exp(s.par.ServiceRate)
}

// JobMIPS draws uniformly within ±Wiggle of maxMIPS*lambda/numServers,
// clamped to [0, maxMIPS].
func (s *RandomSampler) JobMIPS() float64 {
	setpoint := s.par.MaxMIPS * (s.par.ArrivalRate / float64(s.par.NumServers))
	lower := setpoint - s.par.Wiggle*setpoint
	upper := setpoint + s.par.Wiggle*setpoint
	mips := lower + s.src.Float64()*(upper-lower)
	return math.Max(0, math.Min(mips, s.par.MaxMIPS))
}

func (s *RandomSampler) Pick(n int) int {
	return s.src.Intn(n)
}

// exp returns -ln(U)/rate with U drawn from (0, 1).
func (s *RandomSampler) exp(rate float64) float64 {
	u := s.src.Float64()
	for u <= 0 {
		u = s.src.Float64()
	}
	return -math.Log(u) / rate
}

// EntropySource returns a fresh stream seeded from the system entropy pool.
func EntropySource() Source {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return rand.New(rand.NewSource(seed))
}

// SeededSource returns a reproducible stream.
func SeededSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// EntropySamplers reseeds every repetition from system entropy.
func EntropySamplers(par SamplerParams) SamplerFactory {
	return func(int) Sampler {
		return NewRandomSampler(EntropySource(), par)
	}
}

// SeededSamplers gives repetition rep the stream seeded with seed+rep.
func SeededSamplers(par SamplerParams, seed int64) SamplerFactory {
	return func(rep int) Sampler {
		return NewRandomSampler(SeededSource(seed+int64(rep)), par)
	}
}
