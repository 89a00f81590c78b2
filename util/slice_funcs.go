package util

// Contains returns whether the given slice contains the given element.
func Contains[T comparable](slice []T, elem T) bool {
	for _, x := range slice {
		if x == elem {
			return true
		}
	}

	return false
}

// Remove returns the slice with all occurrences of the given element removed.
func Remove[T comparable](slice []T, elem T) []T {
	rSlice := slice[:0]
	for _, x := range slice {
		if x != elem {
			rSlice = append(rSlice, x)
		}
	}

	return rSlice
}
