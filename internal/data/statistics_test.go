package data

import (
	"testing"

	"go.viam.com/test"
)

func TestAttributeStatistics(t *testing.T) {
	s := NewAttributeStatistics()
	s.Set(Min, 2)
	s.Set(Max, 12.5)
	s.Set(Mean, 6)

	v, ok := s.Value(Range)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 10.5)

	v, ok = s.Value(Mean)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 6.0)

	_, ok = s.Value(Variance)
	test.That(t, ok, test.ShouldBeFalse)

	for _, stat := range []Statistic{Sum, Median, Majority, FirstQuartile} {
		_, ok := s.Value(stat)
		test.That(t, ok, test.ShouldBeFalse)
	}
}

func TestClassStatistics(t *testing.T) {
	s := NewAttributeStatistics()
	s.SetClassCount(2, 1000)
	s.SetClassCount(6, 40)

	test.That(t, s.Classes(), test.ShouldHaveLength, 2)

	v, ok := s.ClassStatistic(6, Count)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 40.0)

	_, ok = s.ClassStatistic(6, Mean)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = s.ClassStatistic(9, Count)
	test.That(t, ok, test.ShouldBeFalse)

	clone := s.Clone()
	s.SetClassCount(6, 41)
	v, _ = clone.ClassStatistic(6, Count)
	test.That(t, v, test.ShouldEqual, 40.0)
}

func TestParseStatistic(t *testing.T) {
	stat, ok := ParseStatistic("StdDev")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, stat, test.ShouldEqual, StDev)
	test.That(t, stat.String(), test.ShouldEqual, "stddev")

	_, ok = ParseStatistic("mode")
	test.That(t, ok, test.ShouldBeFalse)
}
