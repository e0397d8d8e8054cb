package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeGrantRecorded EventType = "grant_recorded"
	EventTypeMintRecorded  EventType = "mint_recorded"
	EventTypeRoundClosed   EventType = "round_closed"
	EventTypeUserCreated   EventType = "user_created"
	EventTypeSnapshotSaved EventType = "snapshot_saved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GrantRecordedEvent represents a peer grant written to the open round
type GrantRecordedEvent struct {
	GuildUUID    string  `json:"guildUuid"`
	SenderUUID   string  `json:"senderUuid"`
	ReceiverUUID string  `json:"receiverUuid"`
	Amount       float64 `json:"amount"`
}

func (e GrantRecordedEvent) Type() EventType {
	return EventTypeGrantRecorded
}

// MintRecordedEvent represents an administrative mint written to the open round
type MintRecordedEvent struct {
	GuildUUID    string  `json:"guildUuid"`
	SenderUUID   string  `json:"senderUuid"`
	ReceiverUUID string  `json:"receiverUuid"`
	Amount       float64 `json:"amount"`
}

func (e MintRecordedEvent) Type() EventType {
	return EventTypeMintRecorded
}

// RoundClosedEvent represents a round close and reputation distribution
type RoundClosedEvent struct {
	GuildUUID  string  `json:"guildUuid"`
	RoundIndex int     `json:"roundIndex"`
	EndDate    string  `json:"endDate"`
	TotalUsers int     `json:"totalUsers"`
	Matched    float64 `json:"matched"`
}

func (e RoundClosedEvent) Type() EventType {
	return EventTypeRoundClosed
}

// UserCreatedEvent represents a new member joining the reputation economy
type UserCreatedEvent struct {
	GuildUUID string `json:"guildUuid"`
	UserUUID  string `json:"userUuid"`
	DiscordID string `json:"discordId"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// SnapshotSavedEvent represents a persisted state snapshot
type SnapshotSavedEvent struct {
	Guilds int `json:"guilds"`
}

func (e SnapshotSavedEvent) Type() EventType {
	return EventTypeSnapshotSaved
}
