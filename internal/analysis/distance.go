package analysis

import "gonum.org/v1/gonum/mat"

// IdentityMatrix returns the n x n identity matrix, the default distance
// matrix M: the reference implementation uses the identity since no
// metric learning is performed.
func IdentityMatrix(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Distance computes d(a, b) = (a-b)^T M (a-b). M must be square with
// dimension len(a) == len(b).
func Distance(a, b []float64, m *mat.Dense) float64 {
	n := len(a)
	diff := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		diff.SetVec(i, a[i]-b[i])
	}

	var weighted mat.VecDense
	weighted.MulVec(m, diff)

	return mat.Dot(diff, &weighted)
}

// DistanceVec9 is a convenience wrapper for the fixed 9-slot analysis
// vectors, using the identity matrix.
func DistanceVec9(a, b [VectorLength]float64) float64 {
	return Distance(a[:], b[:], IdentityMatrix(VectorLength))
}
