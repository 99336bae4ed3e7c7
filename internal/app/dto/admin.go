package dto

type UserCounts struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	Verified int            `json:"verified"`
	ByRole   map[string]int `json:"by_role"`
}

type HostelCounts struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Featured int `json:"featured"`
}

type BookingCounts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Revenue  float64        `json:"total_revenue"`
	Currency string         `json:"currency"`
}

type ReviewCounts struct {
	Total         int     `json:"total"`
	AverageRating float64 `json:"average_rating"`
}

type PlatformStats struct {
	Users    UserCounts    `json:"users"`
	Hostels  HostelCounts  `json:"hostels"`
	Bookings BookingCounts `json:"bookings"`
	Reviews  ReviewCounts  `json:"reviews"`
}

type ReminderReport struct {
	Completed         int `json:"completed"`
	CheckInReminders  int `json:"check_in_reminders"`
	CheckOutReminders int `json:"check_out_reminders"`
	ReviewNudges      int `json:"review_nudges"`
}
