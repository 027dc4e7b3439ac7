package utils

import (
	"os"
	"strconv"
)

const (
	// DefaultSemaphoreLimit bounds concurrent extraction calls when nothing
	// else is configured.
	DefaultSemaphoreLimit = 20
)

// GetSemaphoreLimit returns SEMAPHORE_LIMIT from the environment, or
// DefaultSemaphoreLimit when it is unset or not a positive integer.
func GetSemaphoreLimit() int {
	val := os.Getenv("SEMAPHORE_LIMIT")
	if val == "" {
		return DefaultSemaphoreLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}
