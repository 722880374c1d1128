package pkg

import (
	"math"
	"sort"

	"github.com/ecopia-map/ept_index/internal/data"
)

// HasStatisticsMetadata reports whether the dataset declares statistics for any attribute.
func (idx *Index) HasStatisticsMetadata() bool {
	return idx.meta != nil && !idx.meta.stats.Empty()
}

func (idx *Index) attributeStatistics(attribute string) (*data.AttributeStatistics, bool) {
	if idx.meta == nil {
		return nil, false
	}
	return idx.meta.stats.Get(attribute)
}

// MetadataStatistic returns a statistic the dataset declares for an attribute. Kinds the format
// never carries, such as Sum or Median, are reported as missing.
func (idx *Index) MetadataStatistic(attribute string, stat data.Statistic) (float64, bool) {
	stats, ok := idx.attributeStatistics(attribute)
	if !ok {
		return math.NaN(), false
	}
	v, ok := stats.Value(stat)
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

// MetadataClasses lists, in ascending order, the values of a categorical attribute with a declared count.
func (idx *Index) MetadataClasses(attribute string) []int64 {
	stats, ok := idx.attributeStatistics(attribute)
	if !ok {
		return nil
	}
	classes := stats.Classes()
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}

func (idx *Index) MetadataClassStatistic(attribute string, value int64, stat data.Statistic) (float64, bool) {
	stats, ok := idx.attributeStatistics(attribute)
	if !ok {
		return math.NaN(), false
	}
	v, ok := stats.ClassStatistic(value, stat)
	if !ok {
		return math.NaN(), false
	}
	return v, true
}
