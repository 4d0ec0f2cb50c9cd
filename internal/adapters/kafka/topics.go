package kafka

// Topic definitions for event streaming
const (
	// Published after each pipeline recompute (never on a cache hit)
	TopicInsightsComputed = "insights.computed"
)
