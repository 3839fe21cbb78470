package ai

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	stdWeightPosition = 1.0 / 20
	stdWeightVelocity = 1.0 / 160
)

// motion is a constant velocity Kalman filter over the box state
// [cx, cy, w, h, vcx, vcy, vw, vh].
type motion struct {
	mean       *mat.VecDense
	covariance *mat.Dense
}

var (
	motionMat = func() *mat.Dense {
		m := mat.NewDense(8, 8, nil)
		for i := 0; i < 8; i++ {
			m.Set(i, i, 1)
		}
		for i := 0; i < 4; i++ {
			m.Set(i, 4+i, 1)
		}
		return m
	}()
	updateMat = func() *mat.Dense {
		m := mat.NewDense(4, 8, nil)
		for i := 0; i < 4; i++ {
			m.Set(i, i, 1)
		}
		return m
	}()
)

func measurement(r Rect) []float64 {
	w, h := r.X2-r.X1, r.Y2-r.Y1
	return []float64{r.X1 + w/2, r.Y1 + h/2, w, h}
}

func diagonal(values []float64) *mat.Dense {
	m := mat.NewDense(len(values), len(values), nil)
	for i, v := range values {
		m.Set(i, i, v*v)
	}
	return m
}

func newMotion(r Rect) *motion {
	z := measurement(r)
	mean := mat.NewVecDense(8, []float64{z[0], z[1], z[2], z[3], 0, 0, 0, 0})

	h := z[3]
	std := []float64{
		2 * stdWeightPosition * h, 2 * stdWeightPosition * h,
		2 * stdWeightPosition * h, 2 * stdWeightPosition * h,
		10 * stdWeightVelocity * h, 10 * stdWeightVelocity * h,
		10 * stdWeightVelocity * h, 10 * stdWeightVelocity * h,
	}
	return &motion{mean: mean, covariance: diagonal(std)}
}

// predict advances the state by one frame.
func (m *motion) predict() {
	h := m.mean.AtVec(3)
	std := []float64{
		stdWeightPosition * h, stdWeightPosition * h, stdWeightPosition * h, stdWeightPosition * h,
		stdWeightVelocity * h, stdWeightVelocity * h, stdWeightVelocity * h, stdWeightVelocity * h,
	}

	var mean mat.VecDense
	mean.MulVec(motionMat, m.mean)

	var cov mat.Dense
	cov.Product(motionMat, m.covariance, motionMat.T())
	cov.Add(&cov, diagonal(std))

	m.mean = &mean
	m.covariance = &cov
}

// update corrects the state with a measured box.
func (m *motion) update(r Rect) error {
	z := mat.NewVecDense(4, measurement(r))
	h := m.mean.AtVec(3)
	std := []float64{stdWeightPosition * h, stdWeightPosition * h, stdWeightPosition * h, stdWeightPosition * h}

	var projected mat.VecDense
	projected.MulVec(updateMat, m.mean)

	var s mat.Dense
	s.Product(updateMat, m.covariance, updateMat.T())
	s.Add(&s, diagonal(std))

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("innovation covariance: %w", err)
	}

	var gain mat.Dense
	gain.Product(m.covariance, updateMat.T(), &sInv)

	var innovation mat.VecDense
	innovation.SubVec(z, &projected)

	var correction mat.VecDense
	correction.MulVec(&gain, &innovation)

	var mean mat.VecDense
	mean.AddVec(m.mean, &correction)

	var kh, cov mat.Dense
	kh.Mul(&gain, updateMat)
	cov.Mul(&kh, m.covariance)
	cov.Sub(m.covariance, &cov)

	m.mean = &mean
	m.covariance = &cov
	return nil
}

// rect returns the current box estimate.
func (m *motion) rect() Rect {
	cx, cy, w, h := m.mean.AtVec(0), m.mean.AtVec(1), m.mean.AtVec(2), m.mean.AtVec(3)
	return Rect{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}
