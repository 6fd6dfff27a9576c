// Package kmeans clusters 8-bit RGB samples with k-means++ seeding and
// Lloyd iterations. Runs are reproducible: the seeding PRNG is fixed
// and nothing iterates in map order, so the same samples always yield
// the same centroids and assignments.
package kmeans

import (
	"context"
	"math/rand"
)

const (
	seed          = 42
	maxIterations = 100
	// Stop once no centroid moves more than this per iteration
	// (Euclidean distance in RGB space).
	tolerance = 0.5
)

// Result holds converged centroids plus the per-sample assignment.
// Centroid identity is positional; callers that reorder clusters must
// remap Assign themselves.
type Result struct {
	Centroids   [][3]float64
	Populations []int
	Assign      []int
}

// Partition clusters interleaved RGB samples into at most k groups.
// Fewer groups come back when the input has fewer distinct colors than
// k; a cluster that ends up empty keeps Population 0 and callers drop
// it. ctx is checked once per iteration.
func Partition(ctx context.Context, pix []uint8, k int) (*Result, error) {
	n := len(pix) / 3
	if n == 0 || k < 1 {
		return &Result{}, nil
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(rng, pix, n, k)
	k = len(centroids)

	assign := make([]int, n)
	pops := make([]int, k)
	sums := make([][3]float64, k)

	for iter := 0; iter < maxIterations; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for i := range sums {
			sums[i] = [3]float64{}
			pops[i] = 0
		}
		for i := 0; i < n; i++ {
			r, g, b := sampleAt(pix, i)
			c := nearest(centroids, r, g, b)
			assign[i] = c
			sums[c][0] += r
			sums[c][1] += g
			sums[c][2] += b
			pops[c]++
		}

		moved := 0.0
		for c := 0; c < k; c++ {
			if pops[c] == 0 {
				// Stationary; stays a candidate for reassignment.
				continue
			}
			next := [3]float64{
				sums[c][0] / float64(pops[c]),
				sums[c][1] / float64(pops[c]),
				sums[c][2] / float64(pops[c]),
			}
			if d := dist2(centroids[c], next); d > moved {
				moved = d
			}
			centroids[c] = next
		}
		if moved < tolerance*tolerance {
			break
		}
	}

	// Align assignments and populations with the final centroids.
	for i := range pops {
		pops[i] = 0
	}
	for i := 0; i < n; i++ {
		r, g, b := sampleAt(pix, i)
		c := nearest(centroids, r, g, b)
		assign[i] = c
		pops[c]++
	}

	return &Result{Centroids: centroids, Populations: pops, Assign: assign}, nil
}

// seedCentroids picks initial centroids with k-means++: the first
// uniformly, each next proportional to squared distance from the
// nearest chosen one. Seeding stops early when every remaining sample
// coincides with a centroid.
func seedCentroids(rng *rand.Rand, pix []uint8, n, k int) [][3]float64 {
	centroids := make([][3]float64, 0, k)
	first := rng.Intn(n)
	r, g, b := sampleAt(pix, first)
	centroids = append(centroids, [3]float64{r, g, b})

	d2 := make([]float64, n)
	for len(centroids) < k {
		sum := 0.0
		for i := 0; i < n; i++ {
			r, g, b := sampleAt(pix, i)
			d2[i] = nearestDist2(centroids, r, g, b)
			sum += d2[i]
		}
		if sum == 0 {
			break
		}
		target := rng.Float64() * sum
		acc := 0.0
		pick := n - 1
		for i := 0; i < n; i++ {
			acc += d2[i]
			if acc > target {
				pick = i
				break
			}
		}
		r, g, b := sampleAt(pix, pick)
		centroids = append(centroids, [3]float64{r, g, b})
	}
	return centroids
}

func sampleAt(pix []uint8, i int) (r, g, b float64) {
	return float64(pix[i*3]), float64(pix[i*3+1]), float64(pix[i*3+2])
}

// nearest returns the index of the closest centroid; ties go to the
// lowest index so ordering never depends on float noise.
func nearest(centroids [][3]float64, r, g, b float64) int {
	best := 0
	bestD := dist2To(centroids[0], r, g, b)
	for c := 1; c < len(centroids); c++ {
		if d := dist2To(centroids[c], r, g, b); d < bestD {
			bestD = d
			best = c
		}
	}
	return best
}

func nearestDist2(centroids [][3]float64, r, g, b float64) float64 {
	bestD := dist2To(centroids[0], r, g, b)
	for c := 1; c < len(centroids); c++ {
		if d := dist2To(centroids[c], r, g, b); d < bestD {
			bestD = d
		}
	}
	return bestD
}

func dist2To(c [3]float64, r, g, b float64) float64 {
	dr := c[0] - r
	dg := c[1] - g
	db := c[2] - b
	return dr*dr + dg*dg + db*db
}

func dist2(a, b [3]float64) float64 {
	return dist2To(a, b[0], b[1], b[2])
}
