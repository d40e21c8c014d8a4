package services

// MilestoneThresholds are the percent-of-target marks that trigger a
// notification to the petition creator, in ascending order.
var MilestoneThresholds = []int{25, 50, 75, 100}

// CrossedMilestones returns the thresholds newly crossed when the
// signature count moves from previousCount to newCount, ascending. A
// threshold is crossed when previous progress was strictly below it and
// new progress reaches or passes it.
func CrossedMilestones(previousCount, newCount, target int) []int {
	if target <= 0 || newCount <= previousCount {
		return nil
	}

	previousPct := float64(previousCount) / float64(target) * 100
	newPct := float64(newCount) / float64(target) * 100

	var crossed []int
	for _, threshold := range MilestoneThresholds {
		if previousPct < float64(threshold) && float64(threshold) <= newPct {
			crossed = append(crossed, threshold)
		}
	}
	return crossed
}

// HighestCrossedMilestone returns the highest newly crossed threshold.
// When one increment crosses several thresholds (a petition jumping from
// 40% to 100%), only the highest is announced so the creator gets one
// notification, not four.
func HighestCrossedMilestone(previousCount, newCount, target int) (int, bool) {
	crossed := CrossedMilestones(previousCount, newCount, target)
	if len(crossed) == 0 {
		return 0, false
	}
	return crossed[len(crossed)-1], true
}
