package rm

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/edma3/edmautils"
)

// Statistics summarizes this instance's hold on one resource kind: how much of the kind it owns,
// how much it has allocated, and how the free ids are spread out
func (i *Instance) Statistics(kind ResourceKind) edmautils.DetailedStatistics {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return i.statistics(kind)
}

func (i *Instance) statistics(kind ResourceKind) edmautils.DetailedStatistics {
	var stats edmautils.DetailedStatistics
	stats.Clear()

	owned := i.owned[kind]
	reserved := i.reserved[kind].Intersect(owned)
	allocated := i.allocated[kind]
	free := owned.Without(reserved, allocated)

	stats.OwnedCount = owned.Count()
	stats.ReservedCount = reserved.Count()
	stats.AvailableCount = free.Count()

	allocated.Each(func(id int) bool {
		stats.AddAllocation(id)
		return false
	})

	runStart := -1
	for id := 0; id <= free.Len(); id++ {
		if id < free.Len() && free.Contains(id) {
			if runStart < 0 {
				runStart = id
			}
			continue
		}
		if runStart >= 0 {
			stats.AddFreeRun(id - runStart)
			runStart = -1
		}
	}

	return stats
}

// BuildStatsString returns a JSON document describing this instance's resources. When detailed
// is set, the allocated id of every resource is listed as well.
func (i *Instance) BuildStatsString(detailed bool) string {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("Instance").String(i.id.String())
	obj.Name("Region").Int(int(i.region))
	obj.Name("Master").Bool(i.master)
	obj.Name("Flags").String(i.flags.String())

	var total edmautils.DetailedStatistics
	total.Clear()

	kinds := obj.Name("Resources").Object()
	for _, kind := range ResourceKinds {
		stats := i.statistics(kind)
		total.AddDetailedStatistics(&stats)

		kindObj := kinds.Name(kind.String()).Object()
		stats.PrintJSON(&kindObj)

		if detailed {
			ids := kindObj.Name("AllocatedIDs").Array()
			i.allocated[kind].Each(func(id int) bool {
				ids.Int(id)
				return false
			})
			ids.End()
		}
		kindObj.End()
	}
	kinds.End()

	totalObj := obj.Name("Total").Object()
	total.Statistics.PrintJSON(&totalObj)
	totalObj.End()

	obj.End()
	return string(writer.Bytes())
}
