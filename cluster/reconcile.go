package cluster

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/table"
)

var (
	ErrMismatchedEntitySet = errors.New("clusterings do not cover the same entities")
	ErrDuplicateEntity     = errors.New("entity labeled more than once")
	ErrLabelCount          = errors.New("number of labels does not match number of entities")
)

// DefaultSentinel is the flat code for a disagreement when every observed label is below it
const DefaultSentinel = 3

// Label is the cluster one method assigned to one entity
type Label struct {
	Key     string `json:"key"`
	Cluster int    `json:"cluster"`
}

// Labels is the ordered output of one clustering method
type Labels []Label

// NewLabels pairs each key with the cluster at the same position
func NewLabels(keys []string, clusters []int) (Labels, error) {
	if len(keys) != len(clusters) {
		return nil, fmt.Errorf("%w: %d keys, %d labels", ErrLabelCount, len(keys), len(clusters))
	}
	labels := make(Labels, len(keys))
	for i, key := range keys {
		labels[i] = Label{Key: key, Cluster: clusters[i]}
	}
	if _, err := labels.index(); err != nil {
		return nil, err
	}
	return labels, nil
}

// Keys returns the entity keys in order
func (l Labels) Keys() []string {
	keys := make([]string, len(l))
	for i, label := range l {
		keys[i] = label.Key
	}
	return keys
}

func (l Labels) index() (map[string]int, error) {
	idx := make(map[string]int, len(l))
	for _, label := range l {
		if _, ok := idx[label.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, label.Key)
		}
		idx[label.Key] = label.Cluster
	}
	return idx, nil
}

// Consensus is the reconciled outcome for one entity: either both methods agree on a
// cluster, or they disagree
type Consensus struct {
	agree bool
	label int
}

func Agree(label int) Consensus {
	return Consensus{agree: true, label: label}
}

func Disagree() Consensus {
	return Consensus{}
}

// Agreed returns the shared cluster and true when both methods agree
func (c Consensus) Agreed() (int, bool) {
	return c.label, c.agree
}

func (c Consensus) String() string {
	if !c.agree {
		return "disagree"
	}
	return strconv.Itoa(c.label)
}

// Assignment is the reconciled view of one entity
type Assignment struct {
	Key       string    `json:"key"`
	KNN       int       `json:"knn_cluster"`
	PCA       int       `json:"pca_cluster"`
	Consensus Consensus `json:"-"`
}

// Reconciliation holds one assignment per entity in the order of the first method's labels.
// Sentinel is the integer used for disagreements when flattening to a global_cluster column,
// and never equals an observed label.
type Reconciliation struct {
	Assignments []Assignment
	Sentinel    int
}

// Reconcile joins two clusterings of the same entities by key. Entities are in agreement
// when both methods put them in the same cluster.
func Reconcile(knn, pca Labels) (*Reconciliation, error) {
	knnIdx, err := knn.index()
	if err != nil {
		return nil, err
	}
	pcaIdx, err := pca.index()
	if err != nil {
		return nil, err
	}

	var missing, extra []string
	for _, l := range knn {
		if _, ok := pcaIdx[l.Key]; !ok {
			missing = append(missing, l.Key)
		}
	}
	for _, l := range pca {
		if _, ok := knnIdx[l.Key]; !ok {
			extra = append(extra, l.Key)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return nil, fmt.Errorf("%w: %d and %d entities, missing from second %v, only in second %v",
			ErrMismatchedEntitySet, len(knn), len(pca), missing, extra)
	}

	r := &Reconciliation{
		Assignments: make([]Assignment, len(knn)),
		Sentinel:    DefaultSentinel,
	}
	maxLabel := -1
	for i, l := range knn {
		other := pcaIdx[l.Key]
		consensus := Disagree()
		if l.Cluster == other {
			consensus = Agree(l.Cluster)
		}
		r.Assignments[i] = Assignment{Key: l.Key, KNN: l.Cluster, PCA: other, Consensus: consensus}
		maxLabel = max(maxLabel, l.Cluster, other)
	}
	if maxLabel >= DefaultSentinel {
		r.Sentinel = maxLabel + 1
	}
	return r, nil
}

// Global returns the flat global_cluster code of an assignment
func (r *Reconciliation) Global(a Assignment) int {
	if label, ok := a.Consensus.Agreed(); ok {
		return label
	}
	return r.Sentinel
}

// Grey returns the number of entities the two methods disagree on
func (r *Reconciliation) Grey() int {
	var n int
	for _, a := range r.Assignments {
		if _, ok := a.Consensus.Agreed(); !ok {
			n++
		}
	}
	return n
}

// Count is the number of entities each method, and the consensus, put into one cluster
type Count struct {
	Cluster int `json:"cluster"`
	KNN     int `json:"knn"`
	PCA     int `json:"pca"`
	Agreed  int `json:"agreed"`
}

// Counts returns the per cluster counts ordered by cluster
func (r *Reconciliation) Counts() []Count {
	byCluster := make(map[int]*Count)
	get := func(cluster int) *Count {
		c, ok := byCluster[cluster]
		if !ok {
			c = &Count{Cluster: cluster}
			byCluster[cluster] = c
		}
		return c
	}
	for _, a := range r.Assignments {
		get(a.KNN).KNN++
		get(a.PCA).PCA++
		if label, ok := a.Consensus.Agreed(); ok {
			get(label).Agreed++
		}
	}

	counts := make([]Count, 0, len(byCluster))
	for _, c := range byCluster {
		counts = append(counts, *c)
	}
	slices.SortFunc(counts, func(a, b Count) int { return a.Cluster - b.Cluster })
	return counts
}

// Table flattens the reconciliation into knn_cluster, pca_cluster and global_cluster
// columns keyed by keyName
func (r *Reconciliation) Table(keyName string) (*table.Table, error) {
	t := table.New(keyName, constants.KNNClusterColumn, constants.PCAClusterColumn, constants.GlobalClusterColumn)
	for _, a := range r.Assignments {
		if err := t.Append(a.Key, float64(a.KNN), float64(a.PCA), float64(r.Global(a))); err != nil {
			return nil, err
		}
	}
	return t, nil
}
