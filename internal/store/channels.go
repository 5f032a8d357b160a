package store

import (
	"encoding/json"
	"os"
)

type channelsFile struct {
	Channels []string `json:"channels"`
}

// LoadChannels reads the publish target list from a JSON file. A
// missing or broken file yields an empty list, publishing is optional.
func LoadChannels(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var parsed channelsFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil
	}
	return parsed.Channels
}
