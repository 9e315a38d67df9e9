package main

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// settings are read from the environment, falling back to the env file
type settings struct {
	// Controller is the registry id the simulated controller is created under (EDMA3_CONTROLLER)
	Controller uint32
	// Region is the shadow region the instance is opened for (EDMA3_REGION)
	Region uint32
	// Queue is the event queue requested channels are placed on (EDMA3_QUEUE)
	Queue uint32
	// CCBase is the physical address of the channel controller (EDMA3_CC_BASE)
	CCBase uint32
	// LogLevel is the minimum level logged to stderr (EDMA3_LOG_LEVEL)
	LogLevel slog.Level
}

type lookupFunc func(key string) (string, bool)

// loadSettings reads settings from the process environment. Keys that are not set there are
// looked up in envFile, which may be missing.
func loadSettings(envFile string) (settings, error) {
	fileValues := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(err) {
			return settings{}, errors.Wrapf(err, "failed to read %s", envFile)
		}
		if err == nil {
			fileValues = values
		}
	}

	return parseSettings(func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := fileValues[key]
		return value, ok
	})
}

func parseSettings(lookup lookupFunc) (settings, error) {
	s := settings{
		CCBase:   rm.AM335xGlobalConfig().CCBase,
		LogLevel: slog.LevelWarn,
	}

	numbers := []struct {
		key   string
		value *uint32
	}{
		{"EDMA3_CONTROLLER", &s.Controller},
		{"EDMA3_REGION", &s.Region},
		{"EDMA3_QUEUE", &s.Queue},
		{"EDMA3_CC_BASE", &s.CCBase},
	}
	for _, number := range numbers {
		text, ok := lookup(number.key)
		if !ok || text == "" {
			continue
		}
		value, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return settings{}, errors.Wrapf(edmautils.ErrInvalidParam, "%s=%q is not a number", number.key, text)
		}
		*number.value = uint32(value)
	}

	if text, ok := lookup("EDMA3_LOG_LEVEL"); ok && text != "" {
		err := s.LogLevel.UnmarshalText([]byte(text))
		if err != nil {
			return settings{}, errors.Wrapf(edmautils.ErrInvalidParam, "EDMA3_LOG_LEVEL=%q is not a log level", text)
		}
	}

	return s, nil
}
