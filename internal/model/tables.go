package model

import "fmt"

const (
	WebsitesTable    = "Websites"
	GuestsTable      = "Guests"
	ThreadsTable     = "Threads"
	MessagesTable    = "Messages"
	AttachmentsTable = "Attachments"
	TypingTable      = "Typing"
)

// Side distinguishes the two parties of a thread. Rows authored by the
// guest carry MemberID 0, member rows a positive member id.
type Side string

const (
	SideGuest  Side = "guest"
	SideMember Side = "member"
)

func (s Side) Opposite() Side {
	if s == SideGuest {
		return SideMember
	}
	return SideGuest
}

func TypingPK(threadID string, side Side) string {
	return fmt.Sprintf("%s#%s", threadID, side)
}
