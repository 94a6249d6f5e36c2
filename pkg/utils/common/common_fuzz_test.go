package common

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/darianrosebrook/agent-resilience-go/pkg/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func FuzzRandomInterval(f *testing.F) {
	testCases := []struct {
		interval string
	}{
		{
			interval: "2",
		},
	}

	for _, tc := range testCases {
		f.Add(tc.interval)
	}

	f.Fuzz(func(t *testing.T, interval string) {
		re := regexp.MustCompile(`^\d+(-\d+)?$`)
		intervals := strings.Split(interval, "-")
		err := RandomInterval(interval)

		if re.MatchString(interval) == false {
			assert.Error(t, err, "{\"errorCode\":\"GENERIC_ERROR\",\"reason\":\"could not parse FAILURE_INTERVAL env, bad input\"}")
		}

		num, _ := strconv.Atoi(intervals[0])
		if num < 1 && err != nil {
			assert.Error(t, err, "{\"errorCode\":\"GENERIC_ERROR\",\"reason\":\"invalid FAILURE_INTERVAL env value, value below lower limit\"}")
		}
	})
}

func FuzzContains(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		targetStruct := &struct {
			val   string
			slice []string
		}{}
		err := fuzzConsumer.GenerateStruct(targetStruct)
		if err != nil {
			return
		}
		contains := Contains(targetStruct.val, targetStruct.slice)
		for _, s := range targetStruct.slice {
			if s == targetStruct.val {
				require.True(t, contains)
				return
			}
		}
		require.False(t, contains)
	})
}

func FuzzFilterBasedOnPercentage(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		targetStruct := &struct {
			percentage int
			list       []string
		}{}
		err := fuzzConsumer.GenerateStruct(targetStruct)
		if err != nil {
			return
		}
		if len(targetStruct.list) == 0 {
			return
		}
		filtered := FilterBasedOnPercentage(targetStruct.percentage, targetStruct.list)
		expectedLength := math.Maximum(1, math.Adjustment(math.Minimum(targetStruct.percentage, 100), len(targetStruct.list)))
		require.Equal(t, expectedLength, len(filtered))
		for _, v := range filtered {
			require.Contains(t, targetStruct.list, v)
		}
	})
}
