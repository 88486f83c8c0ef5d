package model

// Config controls a full analysis run.
type Config struct {
	Timezone            string  `json:"timezone"`
	StartDate           string  `json:"start_date,omitempty"` // YYYY-MM-DD, auto-detected when empty
	EndDate             string  `json:"end_date,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	IncludeScripts      bool    `json:"include_scripts"`
	IncludeObjections   bool    `json:"include_objections"`
	IncludeAvatars      bool    `json:"include_avatars"`
	BatchSize           int     `json:"batch_size"`
	MaxConcurrentCalls  int     `json:"max_concurrent_api_calls"`
}

// DefaultConfig returns the standard analysis configuration.
func DefaultConfig() Config {
	return Config{
		Timezone:            "UTC",
		SimilarityThreshold: 85.0,
		IncludeScripts:      true,
		IncludeObjections:   true,
		IncludeAvatars:      false,
		BatchSize:           50,
		MaxConcurrentCalls:  5,
	}
}

// MediaBreakdown counts message attachments by type.
type MediaBreakdown struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// Summary holds the core engagement metrics over a conversation set.
type Summary struct {
	TotalConversations        int            `json:"total_conversations"`
	TotalMessagesReceived     int            `json:"total_messages_received"`
	TotalMessagesSent         int            `json:"total_messages_sent"`
	TotalMessagesSentFromApp  int            `json:"total_messages_sent_from_mochi"`
	CreatorMessagesWithReply  int            `json:"creator_messages_with_reply_within_48h"`
	CreatorMessageReplyRate   float64        `json:"creator_message_reply_rate_within_48h"`
	MedianReplyDelaySeconds   int            `json:"median_reply_delay_seconds"`
	StageChanges              map[string]int `json:"stage_changes"`
	Media                     MediaBreakdown `json:"media"`
}

// DayStages is the stage-change breakdown for a single calendar day.
type DayStages struct {
	Date    string         `json:"date"`     // "Mon, 01 Jan 24"
	DateISO string         `json:"date_iso"` // "2024-01-01"
	Stages  map[string]int `json:"stages"`
}

// TimeSeries carries per-day stage counts and time-of-day activity
// histograms. Every histogram always contains all 8 time bins.
type TimeSeries struct {
	StageChangesByDay      []DayStages     `json:"stage_changes_by_day"`
	LeadActivityByTime     map[TimeBin]int `json:"lead_activity_by_time"`
	SetterActivityByTime   map[TimeBin]int `json:"setter_activity_by_time"`
	DelayedResponsesByTime map[TimeBin]int `json:"delayed_responses_by_time"`
}

// SetterMetrics is the per-setter slice of the summary metrics plus
// activity histograms. Produced under two attribution policies: by the
// identity that sent each message, and by conversation assignment.
type SetterMetrics struct {
	TotalConversations       int             `json:"total_conversations"`
	TotalMessagesSentFromApp int             `json:"total_messages_sent_from_mochi"`
	CreatorMessagesWithReply int             `json:"creator_messages_with_reply_within_48h"`
	CreatorMessageReplyRate  float64         `json:"creator_message_reply_rate_within_48h"`
	MedianReplyDelaySeconds  int             `json:"median_reply_delay_seconds"`
	StageChanges             map[string]int  `json:"stage_changes"`
	SetterActivityByTime     map[TimeBin]int `json:"setter_activity_by_time"`
	LeadActivityByTime       map[TimeBin]int `json:"lead_activity_by_time"`
	DelayedResponsesByTime   map[TimeBin]int `json:"delayed_responses_by_time"`
}

// Script categories assigned during LLM enrichment.
const (
	CategoryOpener           = "opener"
	CategoryFollowUp         = "follow_up"
	CategoryNurtureDiscovery = "nurture_discovery"
	CategoryCTA              = "cta"
)

// ScriptCategories lists the valid script categories.
var ScriptCategories = []string{
	CategoryOpener,
	CategoryFollowUp,
	CategoryNurtureDiscovery,
	CategoryCTA,
}

// ScriptPattern is a cluster of near-duplicate CREATOR messages.
type ScriptPattern struct {
	ID        string `json:"id"`
	Example   string `json:"example"`
	TimesSent int    `json:"times_sent"`
	Replies   int    `json:"replies"`
	ReplyRate string `json:"reply_rate"`
	Category  string `json:"category,omitempty"`
	Topic     string `json:"topic,omitempty"`
}

// ScriptsResult groups script patterns by category.
type ScriptsResult struct {
	ByCategory map[string][]ScriptPattern `json:"by_category"`
}

// ObjectionGroups lists the fixed objection vocabulary.
var ObjectionGroups = []string{
	"Financial Objection",
	"Timing Objection",
	"Decision Making Objection",
	"Self Confidence Objection",
	"Lack of Trust/Authority Objection",
	"Competitor Objection",
	"Lack of Information Objection",
}

// ObjectionGroup is one objection category with its share of all
// classified objections.
type ObjectionGroup struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// ObjectionsResult is the aggregate objection classification output.
type ObjectionsResult struct {
	Groups        []ObjectionGroup `json:"objection_groups"`
	TotalAnalyzed int              `json:"total_analyzed"`
}

// AvatarProfile describes one lead persona cluster.
type AvatarProfile struct {
	ID                string   `json:"id"`
	ConversationCount int      `json:"conversation_count"`
	Percentage        float64  `json:"percentage"`
	Job               string   `json:"job"`
	AgeRange          string   `json:"age_range"`
	Motivation        string   `json:"motivation"`
	MainObjection     string   `json:"main_objection"`
	SampleIDs         []string `json:"sample_conversation_ids,omitempty"`
}

// AvatarsResult is the persona clustering output.
type AvatarsResult struct {
	Avatars            []AvatarProfile `json:"avatars"`
	TotalConversations int             `json:"total_conversations"`
	TotalClusters      int             `json:"total_clusters"`
}

// Period is an inclusive date range in the analysis timezone.
type Period struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`
}

// Metadata describes the run that produced an AnalysisResult.
type Metadata struct {
	OrganizationID string `json:"organization_id"`
	Timezone       string `json:"timezone"`
	Period         Period `json:"analysis_period"`
	Simplified     bool   `json:"simplified,omitempty"`
	Config         Config `json:"config"`
}

// AnalysisResult is the complete output of one analysis run. Immutable
// once produced; enrichment blocks are nil unless requested and the
// enrichment collaborator was available.
type AnalysisResult struct {
	Metadata            Metadata                 `json:"metadata"`
	Summary             Summary                  `json:"summary"`
	TimeSeries          TimeSeries               `json:"time_series"`
	SettersBySentBy     map[string]SetterMetrics `json:"setters_by_sent_by"`
	SettersByAssignment map[string]SetterMetrics `json:"setters_by_assignment"`
	Scripts             *ScriptsResult           `json:"scripts,omitempty"`
	Objections          *ObjectionsResult        `json:"objections,omitempty"`
	Avatars             *AvatarsResult           `json:"avatars,omitempty"`
}
