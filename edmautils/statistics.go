package edmautils

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics counts the resources of one kind held by an instance
type Statistics struct {
	OwnedCount     int
	ReservedCount  int
	AllocatedCount int
	AvailableCount int
}

func (s *Statistics) Clear() {
	s.OwnedCount = 0
	s.ReservedCount = 0
	s.AllocatedCount = 0
	s.AvailableCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.OwnedCount += other.OwnedCount
	s.ReservedCount += other.ReservedCount
	s.AllocatedCount += other.AllocatedCount
	s.AvailableCount += other.AvailableCount
}

func (s *Statistics) PrintJSON(json *jwriter.ObjectState) {
	json.Name("Owned").Int(s.OwnedCount)
	json.Name("Reserved").Int(s.ReservedCount)
	json.Name("Allocated").Int(s.AllocatedCount)
	json.Name("Available").Int(s.AvailableCount)
}

// DetailedStatistics extends Statistics with the shape of the allocated id space
type DetailedStatistics struct {
	Statistics
	FreeRunCount     int
	AllocatedIDMin   int
	AllocatedIDMax   int
	FreeRunLengthMin int
	FreeRunLengthMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRunCount = 0
	s.AllocatedIDMin = math.MaxInt
	s.AllocatedIDMax = -1
	s.FreeRunLengthMin = math.MaxInt
	s.FreeRunLengthMax = 0
}

func (s *DetailedStatistics) AddFreeRun(length int) {
	s.FreeRunCount++

	if length < s.FreeRunLengthMin {
		s.FreeRunLengthMin = length
	}

	if length > s.FreeRunLengthMax {
		s.FreeRunLengthMax = length
	}
}

func (s *DetailedStatistics) AddAllocation(id int) {
	s.AllocatedCount++

	if id < s.AllocatedIDMin {
		s.AllocatedIDMin = id
	}

	if id > s.AllocatedIDMax {
		s.AllocatedIDMax = id
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRunCount += other.FreeRunCount

	if other.FreeRunLengthMin < s.FreeRunLengthMin {
		s.FreeRunLengthMin = other.FreeRunLengthMin
	}

	if other.FreeRunLengthMax > s.FreeRunLengthMax {
		s.FreeRunLengthMax = other.FreeRunLengthMax
	}

	if other.AllocatedIDMin < s.AllocatedIDMin {
		s.AllocatedIDMin = other.AllocatedIDMin
	}

	if other.AllocatedIDMax > s.AllocatedIDMax {
		s.AllocatedIDMax = other.AllocatedIDMax
	}
}

func (s *DetailedStatistics) PrintJSON(json *jwriter.ObjectState) {
	s.Statistics.PrintJSON(json)
	json.Name("FreeRuns").Int(s.FreeRunCount)
	if s.AllocatedCount > 0 {
		json.Name("AllocatedIDMin").Int(s.AllocatedIDMin)
		json.Name("AllocatedIDMax").Int(s.AllocatedIDMax)
	}
	if s.FreeRunCount > 0 {
		json.Name("FreeRunLengthMin").Int(s.FreeRunLengthMin)
		json.Name("FreeRunLengthMax").Int(s.FreeRunLengthMax)
	}
}
