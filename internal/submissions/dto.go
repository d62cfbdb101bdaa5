package submissions

import "career-curve/internal/llm"

type analyzeResponse struct {
	Analysis    string        `json:"analysis"`
	Scorecard   llm.Scorecard `json:"scorecard"`
	ResumeText  string        `json:"resumeText"`
	RankPercent *float64      `json:"rankPercent,omitempty"`
	Total       *int          `json:"total,omitempty"`
	FileKey     string        `json:"fileKey"`
	FileURL     string        `json:"fileUrl,omitempty"`
	Saved       bool          `json:"saved,omitempty"`
}

// toResponse leaves rankPercent and total out when no rank was computed.
func toResponse(res Result) analyzeResponse {
	out := analyzeResponse{
		Analysis:   string(res.Analysis),
		Scorecard:  res.Scorecard,
		ResumeText: res.ResumeText,
		FileKey:    res.FileKey,
		FileURL:    res.FileURL,
	}
	if res.Rank.Total > 0 {
		pct := res.Rank.Percent
		total := res.Rank.Total
		out.RankPercent = &pct
		out.Total = &total
	}
	return out
}
