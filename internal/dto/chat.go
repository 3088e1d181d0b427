package dto

// Envelope for every API response. Errors carry Message and
// Success=false; listings put a PageResult in Result.
type APIResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

type PageResult struct {
	Elements interface{} `json:"elements"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
}

type MessageResponse struct {
	MessageID   int64    `json:"messageId"`
	MemberID    int64    `json:"memberId"`
	Message     string   `json:"message"`
	Created     int64    `json:"created"`
	Seen        bool     `json:"seen"`
	Attachments []string `json:"attachments"`
}

type ThreadResponse struct {
	ThreadID     string `json:"threadId"`
	WebsiteID    string `json:"websiteId"`
	ThreadSecret string `json:"threadSecret,omitempty"`
	Created      int64  `json:"created"`
}

type GuestResponse struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	IP        string  `json:"ip,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Created   int64   `json:"created"`
}

type CreateThreadRequest struct {
	WebsiteID string `json:"websiteId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
}

type CreateThreadResponse struct {
	Success bool           `json:"success"`
	Thread  ThreadResponse `json:"thread"`
}

type PostGuestMessageRequest struct {
	WebsiteID    string   `json:"websiteId"`
	ThreadSecret string   `json:"threadSecret"`
	Message      string   `json:"message"`
	Attachments  []string `json:"attachments,omitempty"`
}

type ListGuestMessagesRequest struct {
	WebsiteID    string `json:"websiteId"`
	ThreadSecret string `json:"threadSecret"`
	Page         int    `json:"page"`
}

type PostMemberMessageRequest struct {
	ThreadID    string   `json:"threadId"`
	Message     string   `json:"message"`
	Attachments []string `json:"attachments,omitempty"`
}

type ListMemberMessagesRequest struct {
	Page int `json:"page"`
}

type ListThreadsRequest struct {
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize,omitempty"`
}

type ThreadListElement struct {
	ThreadID   string `json:"threadId"`
	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail"`
	Created    int64  `json:"created"`
}

type ThreadInfoResponse struct {
	Thread ThreadResponse `json:"thread"`
	Guest  GuestResponse  `json:"guest"`
	Typing bool           `json:"typing"`
}

type AttachmentUploadResult struct {
	Links []string `json:"links"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenRefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type WidgetInfoResponse struct {
	WebsiteID  string `json:"websiteId"`
	Name       string `json:"name"`
	HeaderText string `json:"headerText"`
	Enabled    bool   `json:"enabled"`
}
