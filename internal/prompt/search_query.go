package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseSearchQuery extracts search_query from a reformulation reply. It
// returns "" when the model answered null or an empty string, meaning the
// original question should be searched verbatim.
func ParseSearchQuery(reply string) (string, error) {
	candidate := reply
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		candidate = reply[start : end+1]
	}

	var out struct {
		SearchQuery *string `json:"search_query"`
	}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(candidate)
		if rerr != nil {
			return "", fmt.Errorf("repair reformulation reply: %w", rerr)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return "", fmt.Errorf("decode reformulation reply: %w", err)
		}
	}

	if out.SearchQuery == nil {
		return "", nil
	}
	return strings.TrimSpace(*out.SearchQuery), nil
}
