package cluster

import (
	"cmp"
	"slices"
)

// AlignLabels renumbers the clusters of labels so that each one takes the id of the
// reference cluster it overlaps most. Cluster ids of independent KMeans runs are
// arbitrary, so two methods that found the same grouping may still number it differently.
// Clusters left without a reference match get the lowest unused ids.
func AlignLabels(reference, labels Labels) Labels {
	ref := make(map[string]int, len(reference))
	for _, l := range reference {
		ref[l.Key] = l.Cluster
	}

	type pair struct{ from, to int }
	overlap := make(map[pair]int)
	var sources []int
	for _, l := range labels {
		if !slices.Contains(sources, l.Cluster) {
			sources = append(sources, l.Cluster)
		}
		if to, ok := ref[l.Key]; ok {
			overlap[pair{l.Cluster, to}]++
		}
	}

	pairs := make([]pair, 0, len(overlap))
	for p := range overlap {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		if c := cmp.Compare(overlap[b], overlap[a]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.from, b.from); c != 0 {
			return c
		}
		return cmp.Compare(a.to, b.to)
	})

	rename := make(map[int]int)
	taken := make(map[int]bool)
	for _, p := range pairs {
		if _, ok := rename[p.from]; ok || taken[p.to] {
			continue
		}
		rename[p.from] = p.to
		taken[p.to] = true
	}

	slices.Sort(sources)
	next := 0
	for _, from := range sources {
		if _, ok := rename[from]; ok {
			continue
		}
		for taken[next] {
			next++
		}
		rename[from] = next
		taken[next] = true
	}

	aligned := make(Labels, len(labels))
	for i, l := range labels {
		aligned[i] = Label{Key: l.Key, Cluster: rename[l.Cluster]}
	}
	return aligned
}
