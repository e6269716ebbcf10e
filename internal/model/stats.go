package model

type DailyStats struct {
	Date            string   `json:"date"`
	FeedingCount    int      `json:"feeding_count"`
	FeedingAmountML int      `json:"feeding_amount_ml"`
	SleepMinutes    int      `json:"sleep_minutes"`
	DiaperCount     int      `json:"diaper_count"`
	MedicineCount   int      `json:"medicine_count"`
	MaxTemperatureC *float64 `json:"max_temperature_c,omitempty"`
}

type ChatMetricsSummary struct {
	From             string         `json:"from"`
	To               string         `json:"to"`
	Total            int            `json:"total"`
	ByComplexity     map[string]int `json:"by_complexity"`
	ByTier           map[int]int    `json:"by_tier"`
	FallbackRate     float64        `json:"fallback_rate"`
	AvgLatencyMS     float64        `json:"avg_latency_ms"`
	PromptTokens     int64          `json:"prompt_tokens"`
	CompletionTokens int64          `json:"completion_tokens"`
	AvgToolCalls     float64        `json:"avg_tool_calls"`
}
