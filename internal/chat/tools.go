package chat

import (
	"context"
	"time"

	"github.com/yakoovad/babylog/internal/model"
	"google.golang.org/genai"
)

// DataSource gives the complex path read access to one baby's records.
// Callers have already checked that the user may see the baby.
type DataSource interface {
	RecentActivities(ctx context.Context, babyID string, activityType model.ActivityType, days int) ([]*model.Activity, error)
	DailyStats(ctx context.Context, babyID string, days int) ([]*model.DailyStats, error)
	Measurements(ctx context.Context, babyID string, limit int) ([]*model.Measurement, error)
}

const (
	toolRecentActivities = "get_recent_activities"
	toolDailyStats       = "get_daily_stats"
	toolMeasurements     = "get_measurements"

	maxToolDays         = 30
	maxToolActivities   = 100
	maxToolMeasurements = 20
)

var toolDeclarations = []*genai.Tool{{
	FunctionDeclarations: []*genai.FunctionDeclaration{
		{
			Name:        toolRecentActivities,
			Description: "Returns the baby's recorded activities for the last N days, newest first.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"type": {
						Type:        genai.TypeString,
						Description: "Optional activity type filter.",
						Enum:        []string{"feeding", "sleep", "diaper", "medicine", "temperature"},
					},
					"days": {
						Type:        genai.TypeInteger,
						Description: "How many days back to look, 1 to 30.",
					},
				},
				Required: []string{"days"},
			},
		},
		{
			Name:        toolDailyStats,
			Description: "Returns per-day totals (feedings, volume, sleep minutes, diapers, medicine, max temperature) for the last N days.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"days": {
						Type:        genai.TypeInteger,
						Description: "How many days back to aggregate, 1 to 30.",
					},
				},
				Required: []string{"days"},
			},
		},
		{
			Name:        toolMeasurements,
			Description: "Returns the latest growth measurements (weight kg, height cm, head circumference cm).",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"limit": {
						Type:        genai.TypeInteger,
						Description: "Maximum number of measurements, 1 to 20.",
					},
				},
			},
		},
	},
}}

type activityView struct {
	Type         model.ActivityType `json:"type"`
	StartedAt    string             `json:"started_at"`
	DurationMin  int                `json:"duration_min,omitempty"`
	FeedingKind  string             `json:"feeding_kind,omitempty"`
	AmountML     int                `json:"amount_ml,omitempty"`
	DiaperKind   string             `json:"diaper_kind,omitempty"`
	MedicineName string             `json:"medicine_name,omitempty"`
	TemperatureC float64            `json:"temperature_c,omitempty"`
	Memo         string             `json:"memo,omitempty"`
}

// toolbox executes function calls for a single baby.
type toolbox struct {
	data DataSource
	loc  *time.Location
}

func (t *toolbox) execute(ctx context.Context, babyID string, call *genai.FunctionCall) map[string]any {
	switch call.Name {
	case toolRecentActivities:
		days := intArg(call.Args, "days", 1, 1, maxToolDays)
		activityType := model.ActivityType(stringArg(call.Args, "type"))
		if activityType != "" && !activityType.Valid() {
			return map[string]any{"error": "unknown activity type"}
		}

		activities, err := t.data.RecentActivities(ctx, babyID, activityType, days)
		if err != nil {
			return map[string]any{"error": "failed to load activities"}
		}
		if len(activities) > maxToolActivities {
			activities = activities[:maxToolActivities]
		}

		views := make([]activityView, 0, len(activities))
		for _, a := range activities {
			views = append(views, t.view(a))
		}
		return map[string]any{"days": days, "activities": views}

	case toolDailyStats:
		days := intArg(call.Args, "days", 7, 1, maxToolDays)
		stats, err := t.data.DailyStats(ctx, babyID, days)
		if err != nil {
			return map[string]any{"error": "failed to load stats"}
		}
		return map[string]any{"days": days, "stats": stats}

	case toolMeasurements:
		limit := intArg(call.Args, "limit", 5, 1, maxToolMeasurements)
		ms, err := t.data.Measurements(ctx, babyID, limit)
		if err != nil {
			return map[string]any{"error": "failed to load measurements"}
		}
		return map[string]any{"measurements": ms}
	}

	return map[string]any{"error": "unknown function " + call.Name}
}

func (t *toolbox) view(a *model.Activity) activityView {
	v := activityView{
		Type:      a.Type,
		StartedAt: a.StartedAt.In(t.loc).Format("2006-01-02 15:04"),
		Memo:      a.Memo,
	}
	if d := a.Duration(); d > 0 {
		v.DurationMin = int(d.Minutes())
	}
	if a.FeedingKind != nil {
		v.FeedingKind = *a.FeedingKind
	}
	if a.AmountML != nil {
		v.AmountML = *a.AmountML
	}
	if a.DiaperKind != nil {
		v.DiaperKind = *a.DiaperKind
	}
	if a.MedicineName != nil {
		v.MedicineName = *a.MedicineName
	}
	if a.TemperatureC != nil {
		v.TemperatureC = *a.TemperatureC
	}
	return v
}

// intArg reads a numeric argument, clamped to [lo, hi]. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def, lo, hi int) int {
	n := def
	switch v := args[key].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	}
	return max(lo, min(n, hi))
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
