package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normalTestP runs D'Agostino's K-squared omnibus normality test: the
// squared Z scores of the skewness and kurtosis tests summed and compared
// against a chi-squared distribution with two degrees of freedom. Returns
// false when the sample is too small or degenerate for the test.
func normalTestP(values []float64) (float64, bool) {
	n := len(values)
	if n <= normalityMinSamples {
		return 0, false
	}

	m2, m3, m4 := centralMoments(values)
	if m2 == 0 {
		return 0, false
	}

	zs := skewZ(m3/math.Pow(m2, 1.5), n)
	zk := kurtosisZ(m4/(m2*m2), n)
	k2 := zs*zs + zk*zk

	chi2 := distuv.ChiSquared{K: 2}
	return chi2.Survival(k2), true
}

// centralMoments returns the biased second, third and fourth central
// moments of the sample.
func centralMoments(values []float64) (m2, m3, m4 float64) {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	return m2 / n, m3 / n, m4 / n
}

// skewZ transforms the sample skewness into an approximately standard
// normal statistic (D'Agostino 1970).
func skewZ(b1 float64, n int) float64 {
	fn := float64(n)
	y := b1 * math.Sqrt((fn+1)*(fn+3)/(6*(fn-2)))
	beta2 := 3 * (fn*fn + 27*fn - 70) * (fn + 1) * (fn + 3) /
		((fn - 2) * (fn + 5) * (fn + 7) * (fn + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	if y == 0 {
		y = 1
	}
	return delta * math.Log(y/alpha+math.Sqrt((y/alpha)*(y/alpha)+1))
}

// kurtosisZ transforms the sample kurtosis into an approximately standard
// normal statistic (Anscombe & Glynn 1983).
func kurtosisZ(b2 float64, n int) float64 {
	fn := float64(n)
	e := 3 * (fn - 1) / (fn + 1)
	variance := 24 * fn * (fn - 2) * (fn - 3) /
		((fn + 1) * (fn + 1) * (fn + 3) * (fn + 5))
	x := (b2 - e) / math.Sqrt(variance)

	sqrtBeta1 := 6 * (fn*fn - 5*fn + 2) / ((fn + 7) * (fn + 9)) *
		math.Sqrt(6*(fn+3)*(fn+5)/(fn*(fn-2)*(fn-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))

	term1 := 1 - 2/(9*a)
	denom := 1 + x*math.Sqrt(2/(a-4))
	term2 := math.Copysign(math.Cbrt((1-2/a)/math.Abs(denom)), denom)

	return (term1 - term2) / math.Sqrt(2/(9*a))
}
