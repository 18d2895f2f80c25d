package forestry

import (
	"math/rand"
	"sort"
)

/*
SelectSample takes the number of samples of a dataset, their labels,
whether to bootstrap and a source of randomness and returns the sample
a tree grows from with its labels. Bootstrapped samples hold as many
indices as the dataset, drawn with replacement and sorted. Otherwise
every index is taken once.
*/
func SelectSample(nSamples int, labels []int, bootstrap bool, rnd *rand.Rand) ([]int, []int) {
	sample := make([]int, nSamples)
	for i := range sample {
		if bootstrap {
			sample[i] = rnd.Intn(nSamples)
		} else {
			sample[i] = i
		}
	}
	if bootstrap {
		sort.Ints(sample)
	}
	sampleLabels := make([]int, nSamples)
	for i, s := range sample {
		sampleLabels[i] = labels[s]
	}
	return sample, sampleLabels
}
