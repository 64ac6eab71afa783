package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two signals
// that should be sample aligned, such as an input and the sum of its
// separated components.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	ComparedFrames  int `json:"compared_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
	EnergyDiffDB   float64 `json:"energy_diff_db"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns objective distance metrics and a combined score in [0,1],
// where 0 means identical.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	maxLag := sampleRate / 100
	if maxLag > len(reference)-1 {
		maxLag = len(reference) - 1
	}
	if maxLag > len(candidate)-1 {
		maxLag = len(candidate) - 1
	}
	lag := 0
	if maxLag > 0 {
		lag = estimateLag(reference, candidate, maxLag)
	}
	m.LagSamples = lag

	refA, candA := alignByLag(reference, candidate, lag)
	n := len(refA)
	if len(candA) < n {
		n = len(candA)
	}
	if n < 256 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	refA = refA[:n]
	candA = candA[:n]
	m.ComparedFrames = n

	refRMS := rms1(refA)
	m.TimeRMSE = rmse(refA, candA)
	if refRMS > 1e-12 {
		m.TimeRMSE /= refRMS
	}
	m.EnergyDiffDB = linToDB(rms1(candA)) - linToDB(refRMS)

	refEnv := rmsEnvelope(refA, 1024, 512)
	candEnv := rmsEnvelope(candA, 1024, 512)
	envN := len(refEnv)
	if len(candEnv) < envN {
		envN = len(candEnv)
	}
	if envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	// Normalize sub-metrics and combine.
	timeNorm := clamp01(m.TimeRMSE)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	energyNorm := clamp01(math.Abs(m.EnergyDiffDB) / 20.0)
	m.Score = clamp01(0.35*timeNorm + 0.20*envNorm + 0.30*specNorm + 0.15*energyNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))

	return m
}

func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	step := 1
	if len(ref) > 200000 || len(cand) > 200000 {
		step = 4
	}
	bestLag := 0
	best := dotAtLag(ref, cand, 0, step)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if lag == 0 {
			continue
		}
		if s := dotAtLag(ref, cand, lag, step); s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int, step int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := len(a) - ai
	if len(b)-bi < n {
		n = len(b) - bi
	}
	if n <= 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i += step {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares the Hann-windowed magnitude spectra of the first
// power-of-two block (at most 4096 samples) of both signals.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 512 {
		return 0
	}
	size := 512
	for size*2 <= n && size < 4096 {
		size *= 2
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return 0
	}
	hann := hannWindow(size)
	aw := make([]float64, size)
	bw := make([]float64, size)
	for i := 0; i < size; i++ {
		aw[i] = a[i] * hann[i]
		bw[i] = b[i] * hann[i]
	}
	specA := make([]complex128, size/2+1)
	specB := make([]complex128, size/2+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	bins := size / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
