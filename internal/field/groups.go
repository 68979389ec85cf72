package field

// GroupCount returns the smallest number of thread groups of threadsPerGroup lanes
// that covers count particles. Lanes beyond count are skipped by kernel bounds checks.
func GroupCount(count, threadsPerGroup int) int {
	if count <= 0 || threadsPerGroup <= 0 {
		return 0
	}
	groups := count / threadsPerGroup
	if count%threadsPerGroup != 0 {
		groups++
	}
	return groups
}

// Lanes is the number of logical invocations a dispatch of groups covers.
func Lanes(groups, threadsPerGroup int) int {
	return groups * threadsPerGroup
}
