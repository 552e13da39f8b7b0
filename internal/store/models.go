package store

import "time"

// Identity is a registered Telegram account tracked by the bot.
type Identity struct {
	ID           int64
	Handle       string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	RegisteredAt time.Time
	IsActive     bool
}

// DisplayName returns the identity's name for rendering: first and last
// name joined, falling back to the handle.
func (i Identity) DisplayName() string {
	name := i.FirstName
	if i.LastName != "" {
		if name != "" {
			name += " "
		}
		name += i.LastName
	}
	if name == "" {
		name = i.Handle
	}
	return name
}

// StoredObject is the metadata record for an uploaded file or photo.
// The bytes stay on Telegram's servers, addressable by RemoteRef.
type StoredObject struct {
	ID         int64
	IdentityID int64
	Name       string
	MediaType  string
	SizeBytes  int64
	RemoteRef  string
	UploadedAt time.Time
}

// Poll is a survey authored by an identity.
type Poll struct {
	ID         int64
	IdentityID int64
	Question   string
	Options    []string
	Kind       string
	CreatedAt  time.Time
	IsActive   bool
}

// PollResponse is one identity's answer to a poll. At most one response
// per (poll, identity) is kept; re-answering overwrites.
type PollResponse struct {
	ID          int64
	PollID      int64
	IdentityID  int64
	Option      string
	RespondedAt time.Time
}

// CallbackToken maps an opaque inline-button token to the action and
// payload it encodes.
type CallbackToken struct {
	Token     string
	Action    string
	Payload   string
	CreatedAt time.Time
}

// Stats is the aggregate view rendered by the reporting handlers.
type Stats struct {
	IdentityCount       int64
	ActiveIdentityCount int64
	ObjectCount         int64
	ObjectsCreatedToday int64
	PollCount           int64
	ActivePollCount     int64
	StorageSizeBytes    int64
}
