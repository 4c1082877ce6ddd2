// Package metrics records prometheus metrics about a run.
// The metrics are collected in a registry per Collector and can be written
// to a file in the text exposition format, e.g. for the node_exporter
// textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const metricNamespace = "dockerfile_image_update"

const (
	pullRequestsMetricName = "pull_requests_total"
	forksMetricName        = "forks_total"
	filesMetricName        = "updated_files_total"
	searchHitsMetricName   = "search_hits_total"
)

const (
	imageLabel   = "image"
	outcomeLabel = "outcome"
	resultLabel  = "result"
)

type ForkResult string

const (
	ForkAcquired ForkResult = "acquired"
	ForkDenied   ForkResult = "denied"
	ForkFailed   ForkResult = "failed"
)

// Collector records the metrics of a run.
// All methods can be called on a nil Collector, they do nothing then.
type Collector struct {
	logger       *zap.Logger
	registry     *prometheus.Registry
	pullRequests *prometheus.CounterVec
	forks        *prometheus.CounterVec
	files        *prometheus.CounterVec
	searchHits   *prometheus.CounterVec
}

func New() *Collector {
	c := Collector{
		logger:   zap.L().Named("metrics"),
		registry: prometheus.NewRegistry(),
		pullRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      pullRequestsMetricName,
				Help:      "count of processed pull requests by outcome",
			},
			[]string{imageLabel, outcomeLabel},
		),
		forks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      forksMetricName,
				Help:      "count of parent repositories by fork acquisition result",
			},
			[]string{imageLabel, resultLabel},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      filesMetricName,
				Help:      "count of files that were committed with an updated image reference",
			},
			[]string{imageLabel},
		),
		searchHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      searchHitsMetricName,
				Help:      "count of code search results",
			},
			[]string{imageLabel},
		),
	}

	c.registry.MustRegister(c.pullRequests, c.forks, c.files, c.searchHits)

	return &c
}

func (c *Collector) logGetMetricFailed(metricName string, err error) {
	c.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (c *Collector) add(vec *prometheus.CounterVec, metricName string, labels prometheus.Labels, val float64) {
	cnt, err := vec.GetMetricWith(labels)
	if err != nil {
		c.logGetMetricFailed(metricName, err)
		return
	}

	cnt.Add(val)
}

// PullRequestInc increments the counter of pull requests with the outcome.
func (c *Collector) PullRequestInc(image string, outcome fmt.Stringer) {
	if c == nil {
		return
	}

	c.add(c.pullRequests, pullRequestsMetricName, prometheus.Labels{
		imageLabel:   image,
		outcomeLabel: outcome.String(),
	}, 1)
}

func (c *Collector) ForkInc(image string, result ForkResult) {
	if c == nil {
		return
	}

	c.add(c.forks, forksMetricName, prometheus.Labels{
		imageLabel:  image,
		resultLabel: string(result),
	}, 1)
}

func (c *Collector) UpdatedFilesAdd(image string, cnt int) {
	if c == nil || cnt == 0 {
		return
	}

	c.add(c.files, filesMetricName, prometheus.Labels{imageLabel: image}, float64(cnt))
}

func (c *Collector) SearchHitsAdd(image string, cnt int) {
	if c == nil || cnt == 0 {
		return
	}

	c.add(c.searchHits, searchHitsMetricName, prometheus.Labels{imageLabel: image}, float64(cnt))
}

// Gatherer returns the registry of the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteToTextfile writes the metrics atomically to the file at path.
func (c *Collector) WriteToTextfile(path string) error {
	if c == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s failed: %w", path, err)
	}

	return nil
}
