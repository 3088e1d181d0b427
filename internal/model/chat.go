package model

import "strconv"

type WebsiteItem struct {
	WebsiteID  string `dynamodbav:"websiteId"`
	MemberID   int64  `dynamodbav:"memberId"`
	Name       string `dynamodbav:"name"`
	URL        string `dynamodbav:"url"`
	Enabled    bool   `dynamodbav:"enabled"`
	HeaderText string `dynamodbav:"headerText,omitempty"`
	EmbedToken string `dynamodbav:"embedToken"`
	OwnerEmail string `dynamodbav:"ownerEmail"`
	CreatedAt  int64  `dynamodbav:"createdAt"`
}

// GuestItem is written exactly once when a conversation is initiated and
// never mutated afterwards. Latitude/Longitude stay zero when the geo
// lookup is disabled or failed.
type GuestItem struct {
	GuestID   string  `dynamodbav:"guestId"`
	Name      string  `dynamodbav:"name"`
	Email     string  `dynamodbav:"email"`
	IP        string  `dynamodbav:"ip,omitempty"`
	Latitude  float64 `dynamodbav:"latitude,omitempty"`
	Longitude float64 `dynamodbav:"longitude,omitempty"`
	Created   int64   `dynamodbav:"created"`
}

type ThreadItem struct {
	ThreadID     string `dynamodbav:"threadId"`
	WebsiteID    string `dynamodbav:"websiteId"`
	GuestID      string `dynamodbav:"guestId"`
	MemberID     int64  `dynamodbav:"memberId"`
	ThreadSecret string `dynamodbav:"threadSecret"`
	Created      int64  `dynamodbav:"created"`
}

// MessageItem ids are UnixNano at creation time, so id order is creation
// order and serves as the display tie-break for equal second timestamps.
// Seen is the only mutable field and transitions false to true once.
type MessageItem struct {
	MessageID int64  `dynamodbav:"messageId"`
	ThreadID  string `dynamodbav:"threadId"`
	MemberID  int64  `dynamodbav:"memberId"`
	Text      string `dynamodbav:"text,omitempty"`
	Seen      bool   `dynamodbav:"seen"`
	Created   int64  `dynamodbav:"created"`
}

func (m MessageItem) Side() Side {
	if m.MemberID == 0 {
		return SideGuest
	}
	return SideMember
}

// AttachmentItem position is the zero-based index within its message;
// listing sorts on it so links come back in upload order.
type AttachmentItem struct {
	AttachmentID string `dynamodbav:"attachmentId"`
	MessageID    int64  `dynamodbav:"messageId"`
	Position     int    `dynamodbav:"position"`
	Link         string `dynamodbav:"link"`
	Created      int64  `dynamodbav:"created"`
}

type TypingItem struct {
	PK       string `dynamodbav:"pk"`
	ThreadID string `dynamodbav:"threadId"`
	Side     Side   `dynamodbav:"side"`
	Updated  int64  `dynamodbav:"updated"`
}

func MessageIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
