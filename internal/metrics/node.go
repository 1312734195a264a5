package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/riak/riaktest"
)

// nodeCollector exports the dev node's contents as gauges on every scrape.
type nodeCollector struct {
	stats     func() riaktest.Stats
	buckets   *prometheus.Desc
	objects   *prometheus.Desc
	indexes   *prometheus.Desc
	documents *prometheus.Desc
}

// RegisterNode registers gauges for the node's buckets, objects, indexes
// and indexed documents.
func RegisterNode(reg prometheus.Registerer, node *riaktest.Node) error {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", name), help, nil, nil)
	}
	c := &nodeCollector{
		stats:     node.Stats,
		buckets:   desc("buckets", "Buckets known to the node"),
		objects:   desc("objects", "Objects stored across all buckets"),
		indexes:   desc("indexes", "Search indexes known to the node"),
		documents: desc("indexed_documents", "Documents across all search indexes"),
	}
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("register node metrics: %w", err)
	}
	return nil
}

func (c *nodeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.buckets
	ch <- c.objects
	ch <- c.indexes
	ch <- c.documents
}

func (c *nodeCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.buckets, prometheus.GaugeValue, float64(s.Buckets))
	ch <- prometheus.MustNewConstMetric(c.objects, prometheus.GaugeValue, float64(s.Objects))
	ch <- prometheus.MustNewConstMetric(c.indexes, prometheus.GaugeValue, float64(s.Indexes))
	ch <- prometheus.MustNewConstMetric(c.documents, prometheus.GaugeValue, float64(s.Documents))
}
