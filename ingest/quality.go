package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"immodex/config"
)

// QualityIndex scores how complete a listing record is. Each contribution
// is all-or-nothing, so the score is monotonically non-decreasing as more
// fields are filled in. Used as the secondary ranking key after is_new.
func QualityIndex(cfg config.QualityConfig, record map[string]any) float64 {
	var score float64

	if recordString(record, "title") != "" {
		score += cfg.TitleWeight
	}
	if recordString(record, "description") != "" {
		score += cfg.DescriptionWeight
	}
	if recordFloat(record, "area") > 0 {
		score += cfg.AreaWeight
	}
	if len(recordList(record, "media")) >= cfg.MediaThreshold {
		score += cfg.MediaWeight
	}
	if len(recordList(record, "features")) > 0 {
		score += cfg.FeatureWeight
	}
	return score
}

func recordString(record map[string]any, key string) string {
	v, ok := record[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func recordFloat(record map[string]any, key string) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func recordList(record map[string]any, key string) []string {
	switch v := record[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
