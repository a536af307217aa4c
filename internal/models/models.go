package models

import "time"

// Profile represents a bot profile
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Public      bool      `json:"is_public"`
	SnapScore   int       `json:"snap_score"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snap represents one unit of shared media
type Snap struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID *string    `json:"recipient_id,omitempty"`
	PayloadKey  string     `json:"-"`
	ImageURL    string     `json:"image_url"`
	Caption     *string    `json:"caption,omitempty"`
	Tags        []string   `json:"tags"`
	ViewOnce    bool       `json:"view_once"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	ViewCount   int        `json:"view_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Public reports whether the snap belongs on the public feed.
// Visibility is derived from recipient presence: a snap with no
// recipient is public, a snap with one is private. There is no
// separate stored flag.
func (s *Snap) Public() bool {
	return s.RecipientID == nil
}

// SnapView decorates a snap with response-only fields
type SnapView struct {
	Snap
	IsPublic       bool   `json:"is_public"`
	SenderUsername string `json:"sender_username"`
}

// Story is a named ordered collection of one profile's snaps,
// with its own expiry independent of its members'.
type Story struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     *string   `json:"title,omitempty"`
	Public    bool      `json:"is_public"`
	ExpiresAt time.Time `json:"expires_at"`
	ViewCount int       `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
}

// StorySnap is a join row ordering a snap inside a story
type StorySnap struct {
	StoryID  string `json:"story_id"`
	SnapID   string `json:"snap_id"`
	Position int    `json:"position"`
}

// Message is ephemeral text, optionally attached to a snap
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	SnapID      *string    `json:"snap_id,omitempty"`
	Text        *string    `json:"text,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Streak is the reciprocal-snap counter between two profiles.
// BotAID < BotBID always holds; the pair is canonicalized before
// lookup and enforced unique at the store level.
type Streak struct {
	ID         string    `json:"id"`
	BotAID     string    `json:"bot_a_id"`
	BotBID     string    `json:"bot_b_id"`
	Count      int       `json:"count"`
	LastSnapAt time.Time `json:"last_snap_at"`
	BotASent   bool      `json:"-"`
	BotBSent   bool      `json:"-"`
	AtRisk     bool      `json:"at_risk"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reaction is an emoji reaction to a snap, one per bot per snap
type Reaction struct {
	SnapID    string    `json:"snap_id"`
	BotID     string    `json:"bot_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey is a hashed credential belonging to a profile
type APIKey struct {
	KeyHash   string     `json:"-"`
	BotID     string     `json:"bot_id"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
