package model

import "time"

// Sender identifies which side of a conversation authored a message.
type Sender string

const (
	SenderLead    Sender = "LEAD"
	SenderCreator Sender = "CREATOR"
)

// Stage values form the pipeline vocabulary. Upstream exports may use
// alternate names (NEW, BOOKED); those are normalized at ingestion.
const (
	StageNewLead     = "NEW_LEAD"
	StageInContact   = "IN_CONTACT"
	StageQualified   = "QUALIFIED"
	StageUnqualified = "UNQUALIFIED"
	StageBookedCall  = "BOOKED_CALL"
	StageDeposit     = "DEPOSIT"
	StageWon         = "WON"
	StageLost        = "LOST"
	StageNoShow      = "NO_SHOW"
)

// Stages lists all known pipeline stages, in reporting order.
var Stages = []string{
	StageNewLead,
	StageInContact,
	StageQualified,
	StageUnqualified,
	StageBookedCall,
	StageDeposit,
	StageWon,
	StageLost,
	StageNoShow,
}

// TimeBin is a fixed 3-hour bucket of the day.
type TimeBin string

const (
	TimeBin00 TimeBin = "00_03"
	TimeBin03 TimeBin = "03_06"
	TimeBin06 TimeBin = "06_09"
	TimeBin09 TimeBin = "09_12"
	TimeBin12 TimeBin = "12_15"
	TimeBin15 TimeBin = "15_18"
	TimeBin18 TimeBin = "18_21"
	TimeBin21 TimeBin = "21_24"
)

// TimeBins lists all 8 bins covering a 24-hour day, contiguous and
// exhaustive.
var TimeBins = []TimeBin{
	TimeBin00, TimeBin03, TimeBin06, TimeBin09,
	TimeBin12, TimeBin15, TimeBin18, TimeBin21,
}

// Media types recognized in attachment breakdowns. Anything else is
// bucketed into "other".
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaFile  = "file"
	MediaOther = "other"
)

var MediaTypes = []string{MediaImage, MediaVideo, MediaAudio, MediaFile, MediaOther}

// MediaItem is a single attachment on a message.
type MediaItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Message is a single normalized message in a conversation. Immutable
// once ingested. SentBy carries the identity of the person who
// physically sent the message, which can differ from the
// conversation's assigned setter; it is empty when the upstream export
// did not record it.
type Message struct {
	ID        string      `json:"id"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
	SentBy    string      `json:"sent_by,omitempty"`
	Media     []MediaItem `json:"media,omitempty"`

	// SentAt is the parsed Timestamp, set during ingestion. Zero when
	// the raw timestamp could not be parsed.
	SentAt time.Time `json:"-"`
}

// Conversation owns an ordered message sequence. Message order is
// chronological as received from the upstream export; reply detection
// depends on this original order and no re-sorting happens anywhere.
type Conversation struct {
	ID           string    `json:"id"`
	Organization string    `json:"organization"`
	Stage        string    `json:"stage"`
	SetterEmail  string    `json:"setter_email"`
	CreatedAt    string    `json:"created_at"`
	Messages     []Message `json:"messages"`
}
