package models

import "time"

// Campaign status values as stored by the backend.
const (
	StatusIncomplete      = "INCOMPLETE"
	StatusProcessing      = "PROCESSING"
	StatusReadyToActivate = "READY_TO_ACTIVATE"
	StatusActive          = "ACTIVE"
)

// Campaign source types.
const (
	TypeKeyword  = "keyword"
	TypeURL      = "url"
	TypeTrending = "trending"
)

// Campaign represents a unit of analysis work with its sources and
// backend-derived outputs. Exactly one of Keywords/URLs/TrendingTopics is
// meaningful, selected by Type; the others may be present but are ignored.
type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Query       string `json:"query"`
	Type        string `json:"type"` // "keyword", "url", "trending"

	Keywords       []string `json:"keywords,omitempty"`
	URLs           []string `json:"urls,omitempty"`
	TrendingTopics []string `json:"trending_topics,omitempty"`

	// Populated only by the backend after processing.
	Topics        []string     `json:"topics,omitempty"`
	Persons       []string     `json:"persons,omitempty"`
	Organizations []string     `json:"organizations,omitempty"`
	Locations     []string     `json:"locations,omitempty"`
	Dates         []string     `json:"dates,omitempty"`
	Posts         []PostRecord `json:"posts,omitempty"`
	Summary       string       `json:"summary,omitempty"`

	Status          string `json:"status"`
	Progress        *int   `json:"progress,omitempty"` // present only while a task is live
	CurrentStep     string `json:"current_step,omitempty"`
	ProgressMessage string `json:"progress_message,omitempty"`
	TaskID          string `json:"task_id,omitempty"`

	ExtractionSettings    ExtractionSettings    `json:"extraction_settings"`
	PreprocessingSettings PreprocessingSettings `json:"preprocessing_settings"`
	EntitySettings        EntitySettings        `json:"entity_settings"`
	ModelingSettings      ModelingSettings      `json:"modeling_settings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostRecord is one per-source extraction result returned by the backend.
type PostRecord struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// ExtractionSettings are web-scraping parameters consumed by the backend.
// No local validation beyond defaults.
type ExtractionSettings struct {
	MaxPages       int  `json:"max_pages"`
	Depth          int  `json:"depth"`
	IncludeImages  bool `json:"include_images"`
	FollowExternal bool `json:"follow_external"`
}

// PreprocessingSettings are NLP preprocessing parameters.
type PreprocessingSettings struct {
	Language        string `json:"language"`
	RemoveStopwords bool   `json:"remove_stopwords"`
	Lemmatize       bool   `json:"lemmatize"`
	MinTokenLength  int    `json:"min_token_length"`
}

// EntitySettings are entity-recognition parameters.
type EntitySettings struct {
	Model         string  `json:"model"`
	MinConfidence float64 `json:"min_confidence"`
	MergeAliases  bool    `json:"merge_aliases"`
}

// ModelingSettings are topic-modeling parameters.
type ModelingSettings struct {
	Algorithm     string `json:"algorithm"`
	NumTopics     int    `json:"num_topics"`
	Iterations    int    `json:"iterations"`
	WordsPerTopic int    `json:"words_per_topic"`
}

// DefaultExtractionSettings returns the backend's documented defaults.
func DefaultExtractionSettings() ExtractionSettings {
	return ExtractionSettings{MaxPages: 10, Depth: 1}
}

func DefaultPreprocessingSettings() PreprocessingSettings {
	return PreprocessingSettings{Language: "en", RemoveStopwords: true, Lemmatize: true, MinTokenLength: 3}
}

func DefaultEntitySettings() EntitySettings {
	return EntitySettings{Model: "standard", MinConfidence: 0.5, MergeAliases: true}
}

func DefaultModelingSettings() ModelingSettings {
	return ModelingSettings{Algorithm: "lda", NumTopics: 5, Iterations: 100, WordsPerTopic: 10}
}

// Analysis task states reported by the status endpoint.
const (
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
	TaskError      = "error"
)

// TaskStatus is the backend's answer to a status-by-task-id query.
type TaskStatus struct {
	Status      string `json:"status"` // "processing", "completed", "failed", "error"
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step"`
	Message     string `json:"message"`
}

// Terminal reports whether the task has finished, successfully or not.
func (t TaskStatus) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// GeneratedContent is a piece of social-media content produced by the backend
// from a campaign's derived insights.
type GeneratedContent struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Type       string    `json:"type"` // "post", "thread", "caption"
	Text       string    `json:"text"`
	ImageRef   string    `json:"image_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimeSlot addresses one posting opportunity: a day/hour on a platform.
type TimeSlot struct {
	Day      string `json:"day"` // "monday" .. "sunday"
	Hour     int    `json:"hour"`
	Platform string `json:"platform"`
}

// QueueItem is a piece of content assigned to a slot in a given week.
// An item belongs to exactly one day/platform/week slot.
type QueueItem struct {
	ID          string           `json:"id"`
	Content     GeneratedContent `json:"content"`
	Slot        TimeSlot         `json:"slot"`
	Week        string           `json:"week"` // ISO week, e.g. "2026-W35"
	ScheduledAt time.Time        `json:"scheduled_at"`
	Published   bool             `json:"published"`
}
