package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrSchemaMismatch means the model output is not a usable scorecard.
var ErrSchemaMismatch = errors.New("llm output does not match scorecard schema")

// Scorecard is the rubric result returned by the scoring prompt.
type Scorecard struct {
	Education          float64 `json:"education"`
	Experience         float64 `json:"experience"`
	ProjectDescription float64 `json:"projectDescription"`
	Achievements       float64 `json:"achievements"`
	Honors             float64 `json:"honors"`
	OverallMatch       float64 `json:"overallMatch"`
	Summary            string  `json:"summary"`
}

const (
	dimensionMin = 1.0
	dimensionMax = 5.0
)

// Rubric keys as the model returns them. The web client reads these names
// from the analysis string, so the prompt asks for them verbatim.
const (
	KeyEducation          = "教育背景"
	KeyExperience         = "实习与项目经验"
	KeyProjectDescription = "项目描述"
	KeyAchievements       = "成就与量化指标"
	KeyHonors             = "荣誉与闪光点"
	KeyOverallMatch       = "综合匹配度"
	KeySummary            = "简历总结"
)

// Each field is read under its rubric key first, then its English alias.
var (
	overallKeys = []string{KeyOverallMatch, "overallMatch"}
	summaryKeys = []string{KeySummary, "summary"}
)

// ParseScorecard decodes raw model output. The overall match must be present
// and numeric; its range is left to the rank engine. Dimensions that are
// present must lie in [1, 5].
func ParseScorecard(raw json.RawMessage) (Scorecard, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Scorecard{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	var sc Scorecard
	overall, ok, err := number(fields, overallKeys...)
	if err != nil {
		return Scorecard{}, err
	}
	if !ok {
		return Scorecard{}, fmt.Errorf("%w: %s missing", ErrSchemaMismatch, KeyOverallMatch)
	}
	sc.OverallMatch = overall

	dims := []struct {
		keys []string
		dst  *float64
	}{
		{[]string{KeyEducation, "education"}, &sc.Education},
		{[]string{KeyExperience, "experience"}, &sc.Experience},
		{[]string{KeyProjectDescription, "projectDescription"}, &sc.ProjectDescription},
		{[]string{KeyAchievements, "achievements"}, &sc.Achievements},
		{[]string{KeyHonors, "honors"}, &sc.Honors},
	}
	for _, d := range dims {
		v, ok, err := number(fields, d.keys...)
		if err != nil {
			return Scorecard{}, err
		}
		if !ok {
			continue
		}
		if v < dimensionMin || v > dimensionMax {
			return Scorecard{}, fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrSchemaMismatch, d.keys[0], v, dimensionMin, dimensionMax)
		}
		*d.dst = v
	}

	if key, s, ok := lookup(fields, summaryKeys...); ok {
		if err := json.Unmarshal(s, &sc.Summary); err != nil {
			return Scorecard{}, fmt.Errorf("%w: %s is not a string", ErrSchemaMismatch, key)
		}
	}
	return sc, nil
}

// lookup returns the first of keys present with a non-null value.
func lookup(fields map[string]json.RawMessage, keys ...string) (string, json.RawMessage, bool) {
	for _, k := range keys {
		if raw, ok := fields[k]; ok && string(raw) != "null" {
			return k, raw, true
		}
	}
	return "", nil, false
}

// number reads the first present key as a JSON number. Quoted numerals are accepted.
func number(fields map[string]json.RawMessage, keys ...string) (float64, bool, error) {
	key, raw, ok := lookup(fields, keys...)
	if !ok {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			return parsed, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: %s is not numeric", ErrSchemaMismatch, key)
}
