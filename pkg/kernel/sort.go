package kernel

// quicksortAsc sorts due entries ascending by priority so the highest
// priority lands at the tail — the scheduler then executes tail-to-head.
// Only ascending sort is needed: the scheduler never requests descending
// order.
func quicksortAsc(arr []dueEntry, low, high int) {
	if low < high {
		p := partitionAsc(arr, low, high)
		quicksortAsc(arr, low, p-1)
		quicksortAsc(arr, p+1, high)
	}
}

func partitionAsc(arr []dueEntry, low, high int) int {
	pivot := arr[high].priority
	i := low - 1
	for j := low; j < high; j++ {
		if arr[j].priority <= pivot {
			i++
			arr[i], arr[j] = arr[j], arr[i]
		}
	}
	arr[i+1], arr[high] = arr[high], arr[i+1]
	return i + 1
}
