package model

const (
	NotificationTypeInfo = "info"

	DefaultNotificationDuration = 5000 // milliseconds
)

type Notification struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Duration int    `json:"duration"`
}

type Modal struct {
	Open bool        `json:"open"`
	Type string      `json:"type,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// UIState holds the client preferences that live next to the cart. Only
// DarkMode is persisted.
type UIState struct {
	DarkMode      bool           `json:"darkMode"`
	SidebarOpen   bool           `json:"sidebarOpen"`
	Loading       bool           `json:"loading"`
	Modal         Modal          `json:"modal"`
	Notifications []Notification `json:"notifications"`
}
