package channelref

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// ReadFile reads a list of raw channel references from a json (or json5)
// array of strings.
func ReadFile(path string) ([]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var refs []string
	err = json5.Unmarshal(contents, &refs)
	if err != nil {
		return nil, fmt.Errorf("parse channel list %s: %w", path, err)
	}
	return refs, nil
}
