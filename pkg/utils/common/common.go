package common

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/math"
)

//WaitForDuration waits for the given time duration (in seconds)
func WaitForDuration(duration int) {
	time.Sleep(time.Duration(duration) * time.Second)
}

// RandomInterval wait for the random interval lies between lower & upper bounds
func RandomInterval(interval string) error {
	intervals := strings.Split(interval, "-")
	var lowerBound, upperBound int
	switch len(intervals) {
	case 1:
		lowerBound = 0
		upperBound, _ = strconv.Atoi(intervals[0])
	case 2:
		lowerBound, _ = strconv.Atoi(intervals[0])
		upperBound, _ = strconv.Atoi(intervals[1])
	default:
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Reason: "could not parse FAILURE_INTERVAL env, bad input"}
	}
	if upperBound < 1 {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeGeneric, Reason: "invalid FAILURE_INTERVAL env value, value below lower limit"}
	}
	waitTime := lowerBound + getRandomValue(0, upperBound-lowerBound)
	log.Infof("[Wait]: Waiting for the random chaos interval of %vs", waitTime)
	WaitForDuration(waitTime)
	return nil
}

// Contains checks whether the given value is present inside the slice
func Contains(val interface{}, slice interface{}) bool {
	switch v := val.(type) {
	case string:
		s, ok := slice.([]string)
		if !ok {
			return false
		}
		for i := range s {
			if s[i] == v {
				return true
			}
		}
	case int:
		s, ok := slice.([]int)
		if !ok {
			return false
		}
		for i := range s {
			if s[i] == v {
				return true
			}
		}
	}
	return false
}

// ValidateRange validates the given range of numbers
func ValidateRange(a string) string {
	intervals := strings.Split(a, "-")
	switch len(intervals) {
	case 1:
		return a
	case 2:
		lowerBound, _ := strconv.Atoi(intervals[0])
		upperBound, _ := strconv.Atoi(intervals[1])
		return strconv.Itoa(lowerBound + getRandomValue(0, upperBound-lowerBound))
	default:
		log.Errorf("unable to parse the value %v, please provide in valid format", a)
		return "0"
	}
}

// GetStatusMessage returns the event message
func GetStatusMessage(defaultCheck bool, defaultMsg, probeStatus string) string {
	if defaultCheck {
		if probeStatus == "" {
			return defaultMsg
		}
		return defaultMsg + ", Probes: " + probeStatus
	}
	if probeStatus == "" {
		return "Skipped the default checks"
	}
	return "Probes: " + probeStatus
}

// FilterBasedOnPercentage returns the slice of list based on the provided percentage
// it starts from a random index and picks the required count in a circular way
func FilterBasedOnPercentage(percentage int, list []string) []string {

	var finalList []string
	newListLength := math.Maximum(1, math.Adjustment(math.Minimum(percentage, 100), len(list)))

	index := getRandomValue(0, len(list)-1)
	for i := 0; i < newListLength; i++ {
		finalList = append(finalList, list[index])
		index = (index + 1) % len(list)
	}
	return finalList
}

// getRandomValue gives a random value between the given bounds, both inclusive
func getRandomValue(lowerBound, upperBound int) int {
	if upperBound <= lowerBound {
		return lowerBound
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return lowerBound + rng.Intn(upperBound-lowerBound+1)
}
