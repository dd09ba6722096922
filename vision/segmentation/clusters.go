package segmentation

import (
	"sort"

	pc "go.viam.com/intact/pointcloud"
)

// Clusters keeps track of the segments of a point cloud as they are being built.
// Members holds the point indices of each segment, and Indices maps each
// assigned point index to the segment it is a part of.
type Clusters struct {
	Members [][]int
	Indices map[int]int
}

// NewClusters creates an empty new Clusters struct.
func NewClusters() *Clusters {
	return &Clusters{Members: make([][]int, 0), Indices: make(map[int]int)}
}

// N gives the number of clusters in the partition of the point cloud,
// including any emptied by a merge.
func (c *Clusters) N() int {
	return len(c.Members)
}

// AssignCluster assigns the given point to the cluster with the given index.
func (c *Clusters) AssignCluster(point, index int) {
	for index >= len(c.Members) {
		c.Members = append(c.Members, nil)
	}
	c.Indices[point] = index
	c.Members[index] = append(c.Members[index], point)
}

// MergeClusters moves all the points in index "from" to the segment at index "to".
func (c *Clusters) MergeClusters(from, to int) {
	if from == to {
		return
	}
	for max(from, to) >= len(c.Members) {
		c.Members = append(c.Members, nil)
	}
	for _, point := range c.Members[from] {
		c.Indices[point] = to
	}
	c.Members[to] = append(c.Members[to], c.Members[from]...)
	c.Members[from] = nil
}

// Segments returns the non empty clusters, each sorted by point index, in
// order of their lowest point index.
func (c *Clusters) Segments() [][]int {
	out := make([][]int, 0, len(c.Members))
	for _, m := range c.Members {
		if len(m) == 0 {
			continue
		}
		seg := append([]int(nil), m...)
		sort.Ints(seg)
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// RadiusBasedNearestNeighbors partitions the chosen points of the cloud into
// groups where every point is within radius of some other point of its group.
// A nil members slice selects every point. Described in the paper
// "A Clustering Method for Efficient Segmentation of 3D Laser Data" by
// Klasing et al. 2008.
func RadiusBasedNearestNeighbors(cloud pc.PointCloud, kd *pc.KDTree, members []int, radius float64) [][]int {
	if members == nil {
		members = make([]int, cloud.Size())
		for i := range members {
			members[i] = i
		}
	}
	if kd == nil {
		kd = pc.ToKDTree(cloud)
	}
	chosen := make(map[int]bool, len(members))
	for _, i := range members {
		chosen[i] = true
	}

	clusters := NewClusters()
	c := 0
	for _, i := range members {
		// assigned points are still visited so that every neighboring pair
		// ends up in one cluster
		nn := kd.RadiusNearestNeighbors(i, cloud.At(i).Position, radius)
		neighbors := make([]int, 0, len(nn))
		for _, n := range nn {
			if chosen[n.Index] {
				neighbors = append(neighbors, n.Index)
			}
		}
		for _, j := range neighbors {
			ptIndex, ptOk := clusters.Indices[i]
			neighborIndex, neighborOk := clusters.Indices[j]
			switch {
			case ptOk && neighborOk:
				if ptIndex != neighborIndex {
					clusters.MergeClusters(ptIndex, neighborIndex)
				}
			case !ptOk && neighborOk:
				clusters.AssignCluster(i, neighborIndex)
			case ptOk && !neighborOk:
				clusters.AssignCluster(j, ptIndex)
			}
		}
		// none of the neighbors were assigned a cluster, so start a new one
		if _, ok := clusters.Indices[i]; !ok {
			clusters.AssignCluster(i, c)
			for _, j := range neighbors {
				clusters.AssignCluster(j, c)
			}
			c++
		}
	}
	return clusters.Segments()
}

// PruneClusters removes clusters holding fewer than nMin points.
func PruneClusters(clusters [][]int, nMin int) [][]int {
	out := make([][]int, 0, len(clusters))
	for _, c := range clusters {
		if len(c) >= nMin {
			out = append(out, c)
		}
	}
	return out
}
