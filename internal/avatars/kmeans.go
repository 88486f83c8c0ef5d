package avatars

import "math/rand"

// kmeans clusters vectors into k groups with Lloyd's algorithm,
// running nInit random restarts and keeping the assignment with the
// lowest total within-cluster distance. The seed is fixed so a given
// embedding set always clusters the same way.
func kmeans(vectors [][]float64, k, nInit int, seed int64) []int {
	if len(vectors) == 0 || k <= 0 {
		return nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}

	rng := rand.New(rand.NewSource(seed))

	var bestLabels []int
	bestInertia := -1.0

	for run := 0; run < nInit; run++ {
		labels, inertia := kmeansRun(vectors, k, rng)
		if bestInertia < 0 || inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}

	return bestLabels
}

const maxIterations = 100

func kmeansRun(vectors [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	dim := len(vectors[0])

	// Initialize centroids from distinct random points.
	perm := rng.Perm(len(vectors))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), vectors[perm[i]]...)
	}

	labels := make([]int, len(vectors))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their previous one.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := labels[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += x
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	inertia := 0.0
	for i, v := range vectors {
		inertia += squaredDistance(v, centroids[labels[i]])
	}

	return labels, inertia
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := squaredDistance(v, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := squaredDistance(v, centroids[c]); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
