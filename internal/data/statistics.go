package data

import "strings"

type Statistic int

const (
	Count Statistic = iota
	CountMissing
	Sum
	Mean
	Median
	StDev
	StDevSample
	Min
	Max
	Range
	Minority
	Majority
	Variety
	FirstQuartile
	ThirdQuartile
	InterQuartileRange
	First
	Last
	Variance
)

var statisticNames = map[Statistic]string{
	Count:              "count",
	CountMissing:       "count_missing",
	Sum:                "sum",
	Mean:               "mean",
	Median:             "median",
	StDev:              "stddev",
	StDevSample:        "stddev_sample",
	Min:                "minimum",
	Max:                "maximum",
	Range:              "range",
	Minority:           "minority",
	Majority:           "majority",
	Variety:            "variety",
	FirstQuartile:      "first_quartile",
	ThirdQuartile:      "third_quartile",
	InterQuartileRange: "iqr",
	First:              "first",
	Last:               "last",
	Variance:           "variance",
}

func (s Statistic) String() string {
	if name, ok := statisticNames[s]; ok {
		return name
	}
	return "unknown"
}

func ParseStatistic(name string) (Statistic, bool) {
	for s, n := range statisticNames {
		if strings.EqualFold(n, name) {
			return s, true
		}
	}
	return Count, false
}

// AttributeStatistics holds the summary values a dataset declares for one attribute. Every
// value is optional.
type AttributeStatistics struct {
	values  map[Statistic]float64
	classes map[int64]int64
}

func NewAttributeStatistics() *AttributeStatistics {
	return &AttributeStatistics{values: make(map[Statistic]float64)}
}

func (s *AttributeStatistics) Set(stat Statistic, value float64) {
	s.values[stat] = value
}

// SetClassCount records how many points carry the given class value.
func (s *AttributeStatistics) SetClassCount(value, count int64) {
	if s.classes == nil {
		s.classes = make(map[int64]int64)
	}
	s.classes[value] = count
}

// Value returns a declared statistic. Range is derived from Min and Max; kinds a dataset never
// declares, such as Sum or Median, are reported as missing.
func (s *AttributeStatistics) Value(stat Statistic) (float64, bool) {
	switch stat {
	case Count, Mean, StDev, Min, Max, Variance:
		v, ok := s.values[stat]
		return v, ok
	case Range:
		min, okMin := s.values[Min]
		max, okMax := s.values[Max]
		if !okMin || !okMax {
			return 0, false
		}
		return max - min, true
	}
	return 0, false
}

// Classes lists the class values with a declared count.
func (s *AttributeStatistics) Classes() []int64 {
	classes := make([]int64, 0, len(s.classes))
	for value := range s.classes {
		classes = append(classes, value)
	}
	return classes
}

// ClassStatistic returns a statistic of one class value. Only Count is known per class.
func (s *AttributeStatistics) ClassStatistic(value int64, stat Statistic) (float64, bool) {
	if stat != Count {
		return 0, false
	}
	count, ok := s.classes[value]
	return float64(count), ok
}

func (s *AttributeStatistics) Clone() *AttributeStatistics {
	clone := NewAttributeStatistics()
	for k, v := range s.values {
		clone.values[k] = v
	}
	for k, v := range s.classes {
		clone.SetClassCount(k, v)
	}
	return clone
}

// Statistics maps attribute names to their declared statistics.
type Statistics struct {
	attributes map[string]*AttributeStatistics
}

func NewStatistics() *Statistics {
	return &Statistics{attributes: make(map[string]*AttributeStatistics)}
}

func (s *Statistics) Set(attribute string, stats *AttributeStatistics) {
	s.attributes[attribute] = stats
}

func (s *Statistics) Get(attribute string) (*AttributeStatistics, bool) {
	stats, ok := s.attributes[attribute]
	return stats, ok
}

func (s *Statistics) Empty() bool {
	return len(s.attributes) == 0
}

func (s *Statistics) Clone() *Statistics {
	clone := NewStatistics()
	for name, stats := range s.attributes {
		clone.attributes[name] = stats.Clone()
	}
	return clone
}
